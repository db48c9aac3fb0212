// Package query contains read operations (CQRS - Queries).
// Queries never mutate state; they read the reconciled records and
// derive ranked views from them.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/leaderboard"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ResultCache caches whole leaderboard pages keyed by the normalized query.
// A miss returns (nil, nil); cache failures are soft - the query falls
// through to storage.
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*leaderboard.Result, error)
	SetResult(ctx context.Context, key string, result *leaderboard.Result) error
}

// GetLeaderboardHandler serves paginated, filtered, deterministic leaderboard
// pages over the persisted reconciled records.
type GetLeaderboardHandler struct {
	records xp.Repository
	cache   ResultCache
	logger  *slog.Logger
	now     func() time.Time
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// cache may be nil; every query then hits storage.
func NewGetLeaderboardHandler(records xp.Repository, cache ResultCache, logger *slog.Logger) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		records: records,
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle validates the query spec and builds the requested page.
//
// Candidate filtering (eligibility + timeframe) happens in the repository;
// sorting and pagination happen here, so the total count always reflects
// the filtered set before pagination and is identical across pages.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, spec leaderboard.QuerySpec) (*leaderboard.Result, error) {
	spec, err := spec.Normalize()
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	if h.cache != nil {
		cached, err := h.cache.GetResult(ctx, spec.CacheKey())
		if err != nil {
			h.logger.Warn("leaderboard cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	now := h.now()
	since := spec.Timeframe.Since(now)

	candidates, err := h.records.ListEligible(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: list candidates: %w", err)
	}

	result := leaderboard.Page(candidates, spec, now)

	if h.cache != nil {
		if err := h.cache.SetResult(ctx, spec.CacheKey(), &result); err != nil {
			h.logger.Warn("leaderboard cache write failed", "error", err)
		}
	}

	return &result, nil
}
