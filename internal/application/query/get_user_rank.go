package query

import (
	"context"
	"fmt"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery asks for one user's global rank on a sort metric.
type GetUserRankQuery struct {
	// UserID identifies the learner.
	UserID string

	// SortBy is the ranking metric. Empty means XP.
	SortBy xp.SortField
}

// Validate validates the query.
func (q GetUserRankQuery) Validate() error {
	if !xp.UserID(q.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if q.SortBy != "" && !q.SortBy.IsValid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidSortBy, q.SortBy)
	}
	return nil
}

// UserRank is the answer to a rank query.
type UserRank struct {
	// Rank is 1 + the count of eligible users whose metric strictly
	// exceeds this user's. Tied users share the same rank.
	Rank int

	// Metric is this user's value on the requested sort field.
	Metric int64

	// TotalXP and Level accompany the rank for display.
	TotalXP int64
	Level   int
}

// GetUserRankHandler handles GetUserRankQuery.
type GetUserRankHandler struct {
	records xp.Repository
}

// NewGetUserRankHandler creates a new GetUserRankHandler.
func NewGetUserRankHandler(records xp.Repository) *GetUserRankHandler {
	return &GetUserRankHandler{records: records}
}

// Handle computes the rank. The user's own eligibility flag does not exclude
// them from getting a rank; eligibility is only checked when counting others.
func (h *GetUserRankHandler) Handle(ctx context.Context, q GetUserRankQuery) (*UserRank, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_user_rank: %w", err)
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = xp.SortByXP
	}

	record, err := h.records.GetByUserID(ctx, xp.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_user_rank: load record: %w", err)
	}

	metric := record.MetricFor(sortBy)

	above, err := h.records.CountStrictlyAbove(ctx, sortBy, metric)
	if err != nil {
		return nil, fmt.Errorf("get_user_rank: count above: %w", err)
	}

	return &UserRank{
		Rank:    1 + above,
		Metric:  metric,
		TotalXP: int64(record.TotalXP),
		Level:   int(record.Level()),
	}, nil
}
