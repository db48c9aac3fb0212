package postgres

import (
	"context"
	"fmt"

	"github.com/superteam-academy/xp-engine/internal/application/command"
	"github.com/superteam-academy/xp-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC RUN REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SyncRunRepository implements command.SyncRunStore for PostgreSQL.
type SyncRunRepository struct {
	conn *Connection
}

// NewSyncRunRepository creates a new SyncRunRepository.
func NewSyncRunRepository(conn *Connection) *SyncRunRepository {
	return &SyncRunRepository{conn: conn}
}

// SaveRun records a finished reconciliation run.
func (r *SyncRunRepository) SaveRun(ctx context.Context, run *command.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, trigger_kind, synced, skipped, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		run.ID,
		run.Trigger,
		run.Synced,
		run.Skipped,
		run.Errors,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished reconciliation run.
func (r *SyncRunRepository) LastRun(ctx context.Context) (*command.SyncRun, error) {
	query := `
		SELECT id, trigger_kind, synced, skipped, errors, started_at, finished_at
		FROM sync_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run command.SyncRun
	err := r.conn.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.Trigger,
		&run.Synced,
		&run.Skipped,
		&run.Errors,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return &run, nil
}
