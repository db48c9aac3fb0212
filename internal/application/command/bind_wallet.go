package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// BIND WALLET COMMAND
// The identity boundary: wallet format is validated here, before the address
// can ever reach the reconciler.
// ══════════════════════════════════════════════════════════════════════════════

// BindWalletCommand binds a wallet address to a learner's record.
type BindWalletCommand struct {
	// UserID identifies the learner.
	UserID string

	// WalletAddress is the base58 ledger address to bind.
	WalletAddress string

	// LeaderboardEligible sets the opt-out flag alongside the binding.
	// Nil leaves the current value untouched.
	LeaderboardEligible *bool
}

// Validate validates the command.
func (c BindWalletCommand) Validate() error {
	if !xp.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if !xp.WalletAddress(c.WalletAddress).IsValid() {
		return shared.ErrInvalidWalletFmt
	}
	return nil
}

// BindWalletHandler handles BindWalletCommand.
type BindWalletHandler struct {
	records xp.Repository
}

// NewBindWalletHandler creates a new BindWalletHandler.
func NewBindWalletHandler(records xp.Repository) *BindWalletHandler {
	return &BindWalletHandler{records: records}
}

// Handle binds the wallet, creating the record if the user has none yet.
func (h *BindWalletHandler) Handle(ctx context.Context, cmd BindWalletCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("bind_wallet: %w", err)
	}

	now := time.Now().UTC()

	record, err := h.records.GetByUserID(ctx, xp.UserID(cmd.UserID))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("bind_wallet: load record: %w", err)
		}
		record, err = xp.NewRecord(xp.UserID(cmd.UserID), now)
		if err != nil {
			return fmt.Errorf("bind_wallet: %w", err)
		}
	}

	if err := record.BindWallet(xp.WalletAddress(cmd.WalletAddress)); err != nil {
		return fmt.Errorf("bind_wallet: %w", err)
	}
	if cmd.LeaderboardEligible != nil {
		record.LeaderboardEligible = *cmd.LeaderboardEligible
	}
	record.UpdatedAt = now

	if err := h.records.Save(ctx, record); err != nil {
		return fmt.Errorf("bind_wallet: save record: %w", err)
	}
	return nil
}
