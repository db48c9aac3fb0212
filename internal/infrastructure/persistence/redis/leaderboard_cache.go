package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// leaderboardPattern matches every cached leaderboard page regardless of
// timeframe, sort field or pagination. Must stay in sync with QuerySpec.CacheKey.
const leaderboardPattern = "leaderboard:*"

// DefaultLeaderboardTTL bounds how stale a cached page can get between
// reconciliation runs.
const DefaultLeaderboardTTL = 60 * time.Second

// LeaderboardCache caches materialized leaderboard pages keyed by query spec.
// It implements query.ResultCache and command.LeaderboardInvalidator.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache.
// A zero ttl falls back to DefaultLeaderboardTTL.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// GetResult returns the cached page for the key, or (nil, nil) on a miss.
func (c *LeaderboardCache) GetResult(ctx context.Context, key string) (*leaderboard.Result, error) {
	var result leaderboard.Result
	err := c.cache.Get(ctx, key, &result)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leaderboard cache get: %w", err)
	}
	return &result, nil
}

// SetResult caches a materialized page under the key.
func (c *LeaderboardCache) SetResult(ctx context.Context, key string, result *leaderboard.Result) error {
	if result == nil {
		return nil
	}
	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		return fmt.Errorf("leaderboard cache set: %w", err)
	}
	return nil
}

// InvalidateLeaderboard drops every cached page. Called after a reconciliation
// run that changed at least one record.
func (c *LeaderboardCache) InvalidateLeaderboard(ctx context.Context) error {
	if _, err := c.cache.DeleteByPattern(ctx, leaderboardPattern); err != nil {
		return fmt.Errorf("leaderboard cache invalidate: %w", err)
	}
	return nil
}
