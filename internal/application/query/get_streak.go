package query

import (
	"context"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/streak"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StreakView is the read model of one user's streak.
type StreakView struct {
	// CurrentStreak / LongestStreak in days.
	CurrentStreak int
	LongestStreak int

	// LastActiveDate is the last active UTC day; zero if never active.
	LastActiveDate time.Time

	// FreezesAvailable is the remaining freeze count.
	FreezesAvailable int

	// AtRisk is true when the streak is alive but today has no activity yet.
	AtRisk bool

	// NextMilestone is the next milestone ahead of the current streak,
	// nil if all milestones are passed.
	NextMilestone *streak.Milestone
}

// GetStreakHandler serves streak read queries.
type GetStreakHandler struct {
	streaks streak.Repository
	now     func() time.Time
}

// NewGetStreakHandler creates a new GetStreakHandler.
func NewGetStreakHandler(streaks streak.Repository) *GetStreakHandler {
	return &GetStreakHandler{
		streaks: streaks,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle returns the streak view for the user.
// A user without any streak history gets a zero view, not an error.
func (h *GetStreakHandler) Handle(ctx context.Context, userID string) (*StreakView, error) {
	if !xp.UserID(userID).IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	state, err := h.streaks.Get(ctx, xp.UserID(userID))
	if err != nil {
		if shared.IsNotFound(err) {
			return &StreakView{NextMilestone: streak.NextMilestoneAfter(0)}, nil
		}
		return nil, fmt.Errorf("get_streak: %w", err)
	}

	return &StreakView{
		CurrentStreak:    state.CurrentStreak,
		LongestStreak:    state.LongestStreak,
		LastActiveDate:   state.LastActiveDate,
		FreezesAvailable: state.FreezesAvailable,
		AtRisk:           state.AtRisk(h.now()),
		NextMilestone:    streak.NextMilestoneAfter(state.CurrentStreak),
	}, nil
}
