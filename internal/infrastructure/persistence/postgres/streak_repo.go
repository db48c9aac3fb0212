package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/streak"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
	"github.com/superteam-academy/xp-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// Get returns the streak state for a user.
func (r *StreakRepository) Get(ctx context.Context, userID xp.UserID) (*streak.State, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, last_active_date,
			   freezes_available, freeze_active_date
		FROM streaks
		WHERE user_id = $1
	`

	var (
		s          streak.State
		id         string
		lastActive *time.Time
		frozenDate *time.Time
	)

	err := r.conn.QueryRow(ctx, query, string(userID)).Scan(
		&id,
		&s.CurrentStreak,
		&s.LongestStreak,
		&lastActive,
		&s.FreezesAvailable,
		&frozenDate,
	)
	if IsNoRows(err) {
		return nil, shared.ErrStreakNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan streak state: %w", err)
	}

	s.UserID = xp.UserID(id)
	if lastActive != nil {
		s.LastActiveDate = timeutil.StartOfDay(*lastActive)
	}
	if frozenDate != nil {
		s.FreezeActiveDate = timeutil.StartOfDay(*frozenDate)
	}

	return &s, nil
}

// Save upserts the streak state keyed by user_id.
func (r *StreakRepository) Save(ctx context.Context, s *streak.State) error {
	query := `
		INSERT INTO streaks (
			user_id, current_streak, longest_streak, last_active_date,
			freezes_available, freeze_active_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_active_date = EXCLUDED.last_active_date,
			freezes_available = EXCLUDED.freezes_available,
			freeze_active_date = EXCLUDED.freeze_active_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		string(s.UserID),
		s.CurrentStreak,
		s.LongestStreak,
		nullableTime(s.LastActiveDate),
		s.FreezesAvailable,
		nullableTime(s.FreezeActiveDate),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save streak state: %w", err)
	}
	return nil
}
