package query

import (
	"context"
	"fmt"

	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET XP STATS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// XPStats is the aggregate statistics view for dashboards.
type XPStats struct {
	// TotalUsers is the number of tracked records.
	TotalUsers int

	// TotalXP is the sum of TotalXP over all records.
	TotalXP int64

	// AverageXP is the mean TotalXP.
	AverageXP int64

	// TopLevel is the highest level among all users.
	TopLevel int

	// TopTitle is the title for TopLevel.
	TopTitle string

	// UsersWithWallet is the number of records with a bound wallet.
	UsersWithWallet int
}

// GetXPStatsHandler serves aggregate XP statistics.
type GetXPStatsHandler struct {
	records xp.Repository
}

// NewGetXPStatsHandler creates a new GetXPStatsHandler.
func NewGetXPStatsHandler(records xp.Repository) *GetXPStatsHandler {
	return &GetXPStatsHandler{records: records}
}

// Handle computes the aggregate view.
func (h *GetXPStatsHandler) Handle(ctx context.Context) (*XPStats, error) {
	stats, err := h.records.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_xp_stats: %w", err)
	}

	return &XPStats{
		TotalUsers:      stats.TotalUsers,
		TotalXP:         stats.TotalXP,
		AverageXP:       stats.AverageXP,
		TopLevel:        int(stats.TopLevel),
		TopTitle:        xp.TitleForLevel(stats.TopLevel),
		UsersWithWallet: stats.UsersWithWallet,
	}, nil
}
