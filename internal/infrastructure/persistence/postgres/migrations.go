package postgres

// GetMigrations returns all database migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_xp_records",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_streaks",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_sync_runs",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: XP RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: create xp_records table
-- One row per learner. total_xp is denormalized (on_chain + off_chain) so the
-- leaderboard can sort without recomputing, and it only ever moves up.

CREATE TABLE IF NOT EXISTS xp_records (
    user_id TEXT PRIMARY KEY,
    wallet_address TEXT UNIQUE,
    on_chain_xp BIGINT NOT NULL DEFAULT 0 CHECK (on_chain_xp >= 0),
    off_chain_xp BIGINT NOT NULL DEFAULT 0 CHECK (off_chain_xp >= 0),
    total_xp BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
    courses_completed INTEGER NOT NULL DEFAULT 0 CHECK (courses_completed >= 0),
    lessons_completed INTEGER NOT NULL DEFAULT 0 CHECK (lessons_completed >= 0),
    challenges_completed INTEGER NOT NULL DEFAULT 0 CHECK (challenges_completed >= 0),
    last_activity_at TIMESTAMP WITH TIME ZONE,
    last_synced_at TIMESTAMP WITH TIME ZONE,
    leaderboard_eligible BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Leaderboard reads: sorted by metric over eligible rows.
CREATE INDEX IF NOT EXISTS idx_xp_records_total_xp ON xp_records (total_xp DESC);
CREATE INDEX IF NOT EXISTS idx_xp_records_streak ON xp_records (current_streak DESC);
CREATE INDEX IF NOT EXISTS idx_xp_records_eligible_activity
    ON xp_records (leaderboard_eligible, last_activity_at);

-- Reconciler reads: all records with a bound wallet.
CREATE INDEX IF NOT EXISTS idx_xp_records_wallet
    ON xp_records (wallet_address) WHERE wallet_address IS NOT NULL;
`

const migration001Down = `
DROP TABLE IF EXISTS xp_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STREAKS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: create streaks table
-- Full streak state per learner. Dates are calendar days (UTC); the hot
-- counters are denormalized into xp_records for leaderboard sorting.

CREATE TABLE IF NOT EXISTS streaks (
    user_id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
    last_active_date DATE,
    freezes_available INTEGER NOT NULL DEFAULT 1 CHECK (freezes_available >= 0),
    freeze_active_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration002Down = `
DROP TABLE IF EXISTS streaks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: SYNC RUNS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: create sync_runs table
-- Audit trail of reconciliation runs (scheduled and manual).

CREATE TABLE IF NOT EXISTS sync_runs (
    id UUID PRIMARY KEY,
    trigger_kind TEXT NOT NULL,
    synced INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    errors INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_finished_at ON sync_runs (finished_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS sync_runs;
`
