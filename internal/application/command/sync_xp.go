package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP RECONCILIATION
// Merges the on-chain ledger balance and the off-chain progress counter into
// one record under the monotonic-max policy. Two entry points share the same
// merge: a periodic batch run over every bound wallet, and a synchronous
// on-demand path for a single wallet.
// ══════════════════════════════════════════════════════════════════════════════

// BalanceReading is the typed outcome of one ledger read, already converted
// to whole XP units. Found=false means the wallet holds no XP token account -
// a normal outcome, not an error.
type BalanceReading struct {
	Found bool
	XP    xp.XP
}

// LedgerGateway is the reconciler's only path to the external ledger.
type LedgerGateway interface {
	// ReadBalance performs a single synchronous ledger read.
	ReadBalance(ctx context.Context, wallet xp.WalletAddress) (BalanceReading, error)

	// ReadBalances reads many wallets in rate-limited batches. The result
	// covers every input wallet exactly once; a failed read yields nil for
	// that wallet only.
	ReadBalances(ctx context.Context, wallets []xp.WalletAddress) (map[xp.WalletAddress]*BalanceReading, error)
}

// LeaderboardInvalidator drops cached leaderboard pages after reconciliation
// changes the underlying records.
type LeaderboardInvalidator interface {
	InvalidateLeaderboard(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC RUN (audit record)
// ══════════════════════════════════════════════════════════════════════════════

// RunState describes the lifecycle of a reconciliation run.
type RunState string

const (
	// RunStateIdle - no run in progress.
	RunStateIdle RunState = "idle"
	// RunStateRunning - a batch run is executing.
	RunStateRunning RunState = "running"
	// RunStateCompleted - the last run finished and its stats are recorded.
	RunStateCompleted RunState = "completed"
)

// SyncRun is the audit record of one batch reconciliation run.
type SyncRun struct {
	// ID is the server-assigned run identifier.
	ID string

	// Trigger is what started the run: "scheduled" or "manual".
	Trigger string

	// Synced is the count of records whose value changed and was persisted.
	Synced int

	// Skipped is the count of records left untouched: no balance available
	// or value unchanged.
	Skipped int

	// Errors is the count of per-record persistence failures.
	Errors int

	// StartedAt / FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// SyncRunStore persists run audit records.
type SyncRunStore interface {
	// SaveRun records a completed run.
	SaveRun(ctx context.Context, run *SyncRun) error

	// LastRun returns the most recent run, or shared.ErrNotFound.
	LastRun(ctx context.Context) (*SyncRun, error)
}

// SyncStats is the caller-facing summary of a batch run.
type SyncStats struct {
	Synced  int
	Skipped int
	Errors  int
}

// ErrSyncAlreadyRunning is returned when a batch run is requested while
// another one is still executing.
var ErrSyncAlreadyRunning = errors.New("xp sync already running")

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileHandler owns both reconciliation paths.
type ReconcileHandler struct {
	records     xp.Repository
	ledger      LedgerGateway
	runs        SyncRunStore
	invalidator LeaderboardInvalidator
	logger      *slog.Logger

	mu    sync.Mutex
	state RunState
}

// NewReconcileHandler creates a new ReconcileHandler.
// runs and invalidator may be nil; the corresponding steps are skipped.
func NewReconcileHandler(
	records xp.Repository,
	ledger LedgerGateway,
	runs SyncRunStore,
	invalidator LeaderboardInvalidator,
	logger *slog.Logger,
) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		records:     records,
		ledger:      ledger,
		runs:        runs,
		invalidator: invalidator,
		logger:      logger,
		state:       RunStateIdle,
	}
}

// State returns the current run state.
func (h *ReconcileHandler) State() RunState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RunSync executes one batch reconciliation run over every record with a
// bound wallet. Per-record failures are isolated: a ledger read failure or
// persistence failure for one user never aborts the remaining users.
func (h *ReconcileHandler) RunSync(ctx context.Context, trigger string) (*SyncStats, error) {
	h.mu.Lock()
	if h.state == RunStateRunning {
		h.mu.Unlock()
		return nil, ErrSyncAlreadyRunning
	}
	h.state = RunStateRunning
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.state = RunStateCompleted
		h.mu.Unlock()
	}()

	startedAt := time.Now().UTC()

	candidates, err := h.records.ListWithWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync_xp: list wallets: %w", err)
	}

	wallets := make([]xp.WalletAddress, 0, len(candidates))
	for _, rec := range candidates {
		wallets = append(wallets, rec.WalletAddress)
	}

	balances, err := h.ledger.ReadBalances(ctx, wallets)
	if err != nil && len(balances) == 0 {
		return nil, fmt.Errorf("sync_xp: read balances: %w", err)
	}
	// A context error with a partial balance map still reconciles what was read.
	if err != nil {
		h.logger.Warn("batch ledger read interrupted, reconciling partial results",
			"wallets", len(wallets),
			"read", len(balances),
			"error", err)
	}

	stats := &SyncStats{}
	now := time.Now().UTC()

	for _, rec := range candidates {
		reading, ok := balances[rec.WalletAddress]
		if !ok || reading == nil {
			// Balance unavailable for this wallet: recorded in stats only.
			stats.Skipped++
			continue
		}

		balance := xp.XP(0)
		if reading.Found {
			balance = reading.XP
		}

		if !rec.ApplyLedgerBalance(balance) {
			stats.Skipped++
			continue
		}

		rec.SyncedAt(now)
		if err := h.records.Save(ctx, rec); err != nil {
			stats.Errors++
			h.logger.Error("reconciliation write failed",
				"user_id", rec.UserID.String(),
				"wallet", rec.WalletAddress.String(),
				"error", err)
			continue
		}
		stats.Synced++
	}

	finishedAt := time.Now().UTC()
	h.recordRun(ctx, trigger, stats, startedAt, finishedAt)

	if stats.Synced > 0 && h.invalidator != nil {
		if err := h.invalidator.InvalidateLeaderboard(ctx); err != nil {
			h.logger.Warn("leaderboard cache invalidation failed", "error", err)
		}
	}

	h.logger.Info("xp sync completed",
		"trigger", trigger,
		"synced", stats.Synced,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", finishedAt.Sub(startedAt).String())

	return stats, nil
}

// recordRun persists the audit record. Audit failures never fail the run.
func (h *ReconcileHandler) recordRun(ctx context.Context, trigger string, stats *SyncStats, startedAt, finishedAt time.Time) {
	if h.runs == nil {
		return
	}
	run := &SyncRun{
		ID:         uuid.New().String(),
		Trigger:    trigger,
		Synced:     stats.Synced,
		Skipped:    stats.Skipped,
		Errors:     stats.Errors,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if err := h.runs.SaveRun(ctx, run); err != nil {
		h.logger.Warn("sync run audit write failed", "run_id", run.ID, "error", err)
	}
}

// FetchUserData reconciles and returns a single user's record by wallet.
// Error policy differs from the batch path: a failed ledger read is treated
// as balance 0 and never surfaced, while any store read or write failure is
// a hard error for the caller.
func (h *ReconcileHandler) FetchUserData(ctx context.Context, wallet xp.WalletAddress) (*xp.Record, error) {
	if !wallet.IsValid() {
		return nil, shared.ErrInvalidWalletFmt
	}

	record, err := h.records.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("sync_xp: load record for wallet %s: %w", wallet, err)
	}

	balance := xp.XP(0)
	reading, err := h.ledger.ReadBalance(ctx, wallet)
	if err != nil {
		h.logger.Warn("on-demand ledger read failed, assuming zero balance",
			"wallet", wallet.String(),
			"error", err)
	} else if reading.Found {
		balance = reading.XP
	}

	if record.ApplyLedgerBalance(balance) {
		record.SyncedAt(time.Now().UTC())
		if err := h.records.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("sync_xp: save record for wallet %s: %w", wallet, err)
		}
		if h.invalidator != nil {
			if err := h.invalidator.InvalidateLeaderboard(ctx); err != nil {
				h.logger.Warn("leaderboard cache invalidation failed", "error", err)
			}
		}
	}

	return record, nil
}
