package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP RECORD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const xpRecordColumns = `
	user_id, wallet_address, on_chain_xp, off_chain_xp, total_xp,
	current_streak, longest_streak, courses_completed, lessons_completed,
	challenges_completed, last_activity_at, last_synced_at,
	leaderboard_eligible, created_at, updated_at
`

// XPRecordRepository implements xp.Repository for PostgreSQL.
type XPRecordRepository struct {
	conn *Connection
}

// NewXPRecordRepository creates a new XPRecordRepository.
func NewXPRecordRepository(conn *Connection) *XPRecordRepository {
	return &XPRecordRepository{conn: conn}
}

// GetByUserID returns the XP record for a user.
func (r *XPRecordRepository) GetByUserID(ctx context.Context, userID xp.UserID) (*xp.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM xp_records WHERE user_id = $1`, xpRecordColumns)

	row := r.conn.QueryRow(ctx, query, string(userID))
	return r.scanRecord(row)
}

// GetByWallet returns the XP record bound to a wallet address.
func (r *XPRecordRepository) GetByWallet(ctx context.Context, wallet xp.WalletAddress) (*xp.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM xp_records WHERE wallet_address = $1`, xpRecordColumns)

	row := r.conn.QueryRow(ctx, query, string(wallet))
	return r.scanRecord(row)
}

// Save upserts an XP record keyed by user_id.
func (r *XPRecordRepository) Save(ctx context.Context, rec *xp.Record) error {
	query := `
		INSERT INTO xp_records (
			user_id, wallet_address, on_chain_xp, off_chain_xp, total_xp,
			current_streak, longest_streak, courses_completed, lessons_completed,
			challenges_completed, last_activity_at, last_synced_at,
			leaderboard_eligible, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			on_chain_xp = EXCLUDED.on_chain_xp,
			off_chain_xp = EXCLUDED.off_chain_xp,
			total_xp = EXCLUDED.total_xp,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			courses_completed = EXCLUDED.courses_completed,
			lessons_completed = EXCLUDED.lessons_completed,
			challenges_completed = EXCLUDED.challenges_completed,
			last_activity_at = EXCLUDED.last_activity_at,
			last_synced_at = EXCLUDED.last_synced_at,
			leaderboard_eligible = EXCLUDED.leaderboard_eligible,
			updated_at = EXCLUDED.updated_at
	`

	var wallet *string
	if rec.HasWallet() {
		w := string(rec.WalletAddress)
		wallet = &w
	}

	_, err := r.conn.Exec(ctx, query,
		string(rec.UserID),
		wallet,
		int64(rec.OnChainXP),
		int64(rec.OffChainXP),
		int64(rec.TotalXP),
		rec.CurrentStreak,
		rec.LongestStreak,
		rec.CoursesCompleted,
		rec.LessonsCompleted,
		rec.ChallengesCompleted,
		nullableTime(rec.LastActivityAt),
		nullableTime(rec.LastSyncedAt),
		rec.LeaderboardEligible,
		rec.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// user_id conflicts are handled by the upsert, so this is the
			// wallet_address unique constraint.
			return fmt.Errorf("%w: wallet %s is bound to another user", shared.ErrRecordExists, rec.WalletAddress)
		}
		return fmt.Errorf("failed to save xp record: %w", err)
	}

	return nil
}

// ListWithWallet returns all records that have a bound wallet address.
// This is the reconciler's working set.
func (r *XPRecordRepository) ListWithWallet(ctx context.Context) ([]*xp.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM xp_records
		WHERE wallet_address IS NOT NULL
		ORDER BY user_id
	`, xpRecordColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records with wallet: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// ListEligible returns leaderboard-eligible records. A zero since returns all
// eligible records; otherwise only those active at or after since.
func (r *XPRecordRepository) ListEligible(ctx context.Context, since time.Time) ([]*xp.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM xp_records
		WHERE leaderboard_eligible = TRUE
	`, xpRecordColumns)

	var (
		rows pgx.Rows
		err  error
	)
	if since.IsZero() {
		rows, err = r.conn.Query(ctx, query)
	} else {
		query += " AND last_activity_at >= $1"
		rows, err = r.conn.Query(ctx, query, since.UTC())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible records: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// CountStrictlyAbove returns the number of eligible records whose sort metric
// strictly exceeds value. Used to compute a user's rank with shared ties.
func (r *XPRecordRepository) CountStrictlyAbove(ctx context.Context, field xp.SortField, value int64) (int, error) {
	column, err := sortColumn(field)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM xp_records
		WHERE leaderboard_eligible = TRUE AND %s > $1
	`, column)

	var count int
	if err := r.conn.QueryRow(ctx, query, value).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records above %s=%d: %w", field, value, err)
	}
	return count, nil
}

// Stats returns aggregate statistics over all records.
func (r *XPRecordRepository) Stats(ctx context.Context) (*xp.AggregateStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_xp), 0),
			COALESCE(MAX(total_xp), 0),
			COUNT(wallet_address)
		FROM xp_records
	`

	var (
		stats xp.AggregateStats
		maxXP int64
	)
	err := r.conn.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalXP,
		&maxXP,
		&stats.UsersWithWallet,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query xp stats: %w", err)
	}

	if stats.TotalUsers > 0 {
		stats.AverageXP = stats.TotalXP / int64(stats.TotalUsers)
	}
	stats.TopLevel = xp.LevelForXP(xp.XP(maxXP))

	return &stats, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *XPRecordRepository) scanRecord(row pgx.Row) (*xp.Record, error) {
	rec, err := scanRecordFields(row)
	if IsNoRows(err) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan xp record: %w", err)
	}
	return rec, nil
}

func (r *XPRecordRepository) scanRecords(rows pgx.Rows) ([]*xp.Record, error) {
	var records []*xp.Record

	for rows.Next() {
		rec, err := scanRecordFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan xp record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

func scanRecordFields(row pgx.Row) (*xp.Record, error) {
	var (
		rec            xp.Record
		userID         string
		wallet         *string
		onChain        int64
		offChain       int64
		total          int64
		lastActivityAt *time.Time
		lastSyncedAt   *time.Time
	)

	err := row.Scan(
		&userID,
		&wallet,
		&onChain,
		&offChain,
		&total,
		&rec.CurrentStreak,
		&rec.LongestStreak,
		&rec.CoursesCompleted,
		&rec.LessonsCompleted,
		&rec.ChallengesCompleted,
		&lastActivityAt,
		&lastSyncedAt,
		&rec.LeaderboardEligible,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.UserID = xp.UserID(userID)
	if wallet != nil {
		rec.WalletAddress = xp.WalletAddress(*wallet)
	}
	rec.OnChainXP = xp.XP(onChain)
	rec.OffChainXP = xp.XP(offChain)
	rec.TotalXP = xp.XP(total)
	if lastActivityAt != nil {
		rec.LastActivityAt = *lastActivityAt
	}
	if lastSyncedAt != nil {
		rec.LastSyncedAt = *lastSyncedAt
	}

	return &rec, nil
}

// sortColumn maps a sort field to its column. The whitelist keeps user input
// out of the SQL text.
func sortColumn(field xp.SortField) (string, error) {
	switch field {
	case xp.SortByXP:
		return "total_xp", nil
	case xp.SortByStreak:
		return "current_streak", nil
	case xp.SortByCourses:
		return "courses_completed", nil
	case xp.SortByChallenges:
		return "challenges_completed", nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidSortBy, field)
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
