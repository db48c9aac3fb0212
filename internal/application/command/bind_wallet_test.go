package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

func TestBindWallet_CreatesRecordWhenMissing(t *testing.T) {
	records := newMemRecords()
	handler := NewBindWalletHandler(records)

	err := handler.Handle(context.Background(), BindWalletCommand{
		UserID:        "user-1",
		WalletAddress: string(walletA),
	})
	assert.NoError(t, err)

	rec, err := records.GetByUserID(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, walletA, rec.WalletAddress)
	assert.True(t, rec.LeaderboardEligible)
}

func TestBindWallet_RebindsExistingRecord(t *testing.T) {
	rec, _ := xp.NewRecord("user-1", time.Now().UTC())
	_ = rec.BindWallet(walletA)
	_ = rec.ApplyActivity(500, time.Now().UTC())
	records := newMemRecords(rec)
	handler := NewBindWalletHandler(records)

	err := handler.Handle(context.Background(), BindWalletCommand{
		UserID:        "user-1",
		WalletAddress: string(walletB),
	})
	assert.NoError(t, err)

	stored, _ := records.GetByUserID(context.Background(), "user-1")
	assert.Equal(t, walletB, stored.WalletAddress)
	assert.Equal(t, xp.XP(500), stored.TotalXP, "rebinding must not touch XP")
}

func TestBindWallet_SetsEligibilityOptOut(t *testing.T) {
	records := newMemRecords()
	handler := NewBindWalletHandler(records)
	optOut := false

	err := handler.Handle(context.Background(), BindWalletCommand{
		UserID:              "user-1",
		WalletAddress:       string(walletA),
		LeaderboardEligible: &optOut,
	})
	assert.NoError(t, err)

	rec, _ := records.GetByUserID(context.Background(), "user-1")
	assert.False(t, rec.LeaderboardEligible)
}

func TestBindWallet_Validation(t *testing.T) {
	handler := NewBindWalletHandler(newMemRecords())
	ctx := context.Background()

	err := handler.Handle(ctx, BindWalletCommand{UserID: "", WalletAddress: string(walletA)})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	err = handler.Handle(ctx, BindWalletCommand{UserID: "user-1", WalletAddress: "not-base58"})
	assert.ErrorIs(t, err, shared.ErrInvalidWalletFmt)
}
