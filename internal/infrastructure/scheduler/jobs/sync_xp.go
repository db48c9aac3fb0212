// Package jobs contains implementations of scheduled jobs for the XP engine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC XP JOB
// ══════════════════════════════════════════════════════════════════════════════

// SyncXPJob runs a full reconciliation pass: it reads token balances for every
// wallet-bound record and folds them into the stored XP totals.
type SyncXPJob struct {
	reconciler *command.ReconcileHandler

	// Timeout bounds a single reconciliation run.
	Timeout time.Duration
}

// NewSyncXPJob creates a new SyncXPJob.
func NewSyncXPJob(reconciler *command.ReconcileHandler, timeout time.Duration) *SyncXPJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SyncXPJob{reconciler: reconciler, Timeout: timeout}
}

// Name returns the unique name of the job.
func (j *SyncXPJob) Name() string {
	return "sync_xp"
}

// Description returns a human-readable description of the job.
func (j *SyncXPJob) Description() string {
	return "Reconciles stored XP totals with on-chain token balances"
}

// Run executes one reconciliation pass.
func (j *SyncXPJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	stats, err := j.reconciler.RunSync(ctx, "scheduled")
	if err != nil {
		// A run already in flight is not a failure of this tick.
		if errors.Is(err, command.ErrSyncAlreadyRunning) {
			return nil
		}
		return fmt.Errorf("sync xp job: %w", err)
	}

	if stats.Errors > 0 {
		return fmt.Errorf("sync xp job: completed with %d errors (synced=%d skipped=%d)",
			stats.Errors, stats.Synced, stats.Skipped)
	}
	return nil
}
