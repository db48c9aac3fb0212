package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/streak"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STREAK COMMAND
// Day-based streak transition trigger. Every transition persists synchronously;
// transitions are idempotent within one calendar day.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakCommand triggers a streak transition for "today".
type UpdateStreakCommand struct {
	// UserID identifies the learner.
	UserID string

	// UseFreeze is the external freeze-consumption trigger: when the gap
	// since the last active day exceeds one day and a freeze is available,
	// the reset becomes a continuation.
	UseFreeze bool

	// Now overrides the transition instant. Zero means time.Now.
	Now time.Time
}

// Validate validates the command.
func (c UpdateStreakCommand) Validate() error {
	if !xp.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// UpdateStreakResult contains the outcome of a streak transition.
type UpdateStreakResult struct {
	// Kind is what happened: started, noop, extended, frozen, reset.
	Kind streak.TransitionKind

	// CurrentStreak / LongestStreak are the values after the transition.
	CurrentStreak int
	LongestStreak int

	// FreezesAvailable is the remaining freeze count.
	FreezesAvailable int

	// Milestone is the milestone hit by this transition, nil if none.
	Milestone *streak.Milestone
}

// UpdateStreakHandler handles UpdateStreakCommand.
type UpdateStreakHandler struct {
	streaks streak.Repository
	records xp.Repository
}

// NewUpdateStreakHandler creates a new UpdateStreakHandler.
func NewUpdateStreakHandler(streaks streak.Repository, records xp.Repository) *UpdateStreakHandler {
	return &UpdateStreakHandler{
		streaks: streaks,
		records: records,
	}
}

// Handle advances the streak state machine and persists the result.
// Streak values are denormalized into the XP record so leaderboard sorting
// by streak never joins against streak storage; a milestone grants its XP
// bonus through the same off-chain counter as regular activity.
func (h *UpdateStreakHandler) Handle(ctx context.Context, cmd UpdateStreakCommand) (*UpdateStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_streak: %w", err)
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	state, err := h.streaks.Get(ctx, xp.UserID(cmd.UserID))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("update_streak: load state: %w", err)
		}
		state = streak.NewState(xp.UserID(cmd.UserID))
	}

	transition := state.Advance(now, cmd.UseFreeze)

	if err := h.streaks.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("update_streak: save state: %w", err)
	}

	if transition.Kind != streak.TransitionNoop {
		if err := h.denormalize(ctx, state, transition, now); err != nil {
			return nil, fmt.Errorf("update_streak: %w", err)
		}
	}

	return &UpdateStreakResult{
		Kind:             transition.Kind,
		CurrentStreak:    transition.CurrentStreak,
		LongestStreak:    transition.LongestStreak,
		FreezesAvailable: state.FreezesAvailable,
		Milestone:        transition.Milestone,
	}, nil
}

// denormalize mirrors the streak values into the XP record and applies
// the milestone XP bonus, if any.
func (h *UpdateStreakHandler) denormalize(ctx context.Context, state *streak.State, transition streak.Transition, now time.Time) error {
	record, err := h.records.GetByUserID(ctx, state.UserID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("load record: %w", err)
		}
		record, err = xp.NewRecord(state.UserID, now)
		if err != nil {
			return err
		}
	}

	record.ApplyStreak(transition.CurrentStreak, transition.LongestStreak)
	record.UpdatedAt = now

	if transition.Milestone != nil {
		if err := record.ApplyActivity(xp.XP(transition.Milestone.XPReward), now); err != nil {
			return fmt.Errorf("apply milestone bonus: %w", err)
		}
	}

	if err := h.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}
