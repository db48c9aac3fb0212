// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Ingests one activity event from the progress subsystem. Activity events are
// the only writers of the off-chain XP counter.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityType classifies an activity event for progress counters.
type ActivityType string

const (
	// ActivityCourseCompleted - a course was finished.
	ActivityCourseCompleted ActivityType = "course_completed"
	// ActivityLessonCompleted - a lesson was finished.
	ActivityLessonCompleted ActivityType = "lesson_completed"
	// ActivityChallengeCompleted - a challenge was solved.
	ActivityChallengeCompleted ActivityType = "challenge_completed"
	// ActivityBonus - out-of-band XP grant (streak milestone, admin award).
	ActivityBonus ActivityType = "bonus"
)

// IsValid checks that the activity type is one of the known kinds.
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityCourseCompleted, ActivityLessonCompleted, ActivityChallengeCompleted, ActivityBonus:
		return true
	}
	return false
}

// RecordActivityCommand contains one activity event.
type RecordActivityCommand struct {
	// UserID identifies the learner.
	UserID string

	// Type classifies the event.
	Type ActivityType

	// XPDelta is the XP earned by this event. Must be >= 0.
	XPDelta int64

	// Timestamp is when the activity happened. Zero means "now".
	Timestamp time.Time
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if !xp.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("record_activity: %w: unknown activity type %q", shared.ErrInvalidInput, c.Type)
	}
	if c.XPDelta < 0 {
		return shared.ErrNegativeXP
	}
	return nil
}

// RecordActivityResult contains the outcome of ingesting one event.
type RecordActivityResult struct {
	// EventID is the server-assigned identifier of the ingested event.
	EventID string

	// Created is true when this event created the user's record.
	Created bool

	// TotalXP is the reconciled total after the event.
	TotalXP int64

	// Level is the level derived from TotalXP.
	Level int

	// LeveledUp is true when the event pushed the user over a level boundary.
	LeveledUp bool
}

// RecordActivityHandler handles RecordActivityCommand.
type RecordActivityHandler struct {
	records xp.Repository
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(records xp.Repository) *RecordActivityHandler {
	return &RecordActivityHandler{records: records}
}

// Handle ingests the event. The user's record is created on first activity.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	at := cmd.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	created := false
	record, err := h.records.GetByUserID(ctx, xp.UserID(cmd.UserID))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("record_activity: load record: %w", err)
		}
		record, err = xp.NewRecord(xp.UserID(cmd.UserID), at)
		if err != nil {
			return nil, fmt.Errorf("record_activity: %w", err)
		}
		created = true
	}

	levelBefore := record.Level()

	if err := record.ApplyActivity(xp.XP(cmd.XPDelta), at); err != nil {
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	switch cmd.Type {
	case ActivityCourseCompleted:
		record.CoursesCompleted++
	case ActivityLessonCompleted:
		record.LessonsCompleted++
	case ActivityChallengeCompleted:
		record.ChallengesCompleted++
	}

	if err := h.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("record_activity: save record: %w", err)
	}

	return &RecordActivityResult{
		EventID:   uuid.New().String(),
		Created:   created,
		TotalXP:   int64(record.TotalXP),
		Level:     int(record.Level()),
		LeveledUp: record.Level() > levelBefore,
	}, nil
}
