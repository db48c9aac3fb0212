package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
)

func TestRecordActivity_CreatesRecordOnFirstEvent(t *testing.T) {
	records := newMemRecords()
	handler := NewRecordActivityHandler(records)

	result, err := handler.Handle(context.Background(), RecordActivityCommand{
		UserID:  "user-1",
		Type:    ActivityLessonCompleted,
		XPDelta: 150,
	})
	assert.NoError(t, err)
	assert.True(t, result.Created)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, int64(150), result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.True(t, result.LeveledUp)

	rec, err := records.GetByUserID(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.LessonsCompleted)
	assert.True(t, rec.LeaderboardEligible)
}

func TestRecordActivity_AccumulatesAndTracksCounters(t *testing.T) {
	records := newMemRecords()
	handler := NewRecordActivityHandler(records)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityCourseCompleted, XPDelta: 300})
	assert.NoError(t, err)

	result, err := handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityChallengeCompleted, XPDelta: 50})
	assert.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, int64(350), result.TotalXP)

	rec, _ := records.GetByUserID(ctx, "user-1")
	assert.Equal(t, 1, rec.CoursesCompleted)
	assert.Equal(t, 1, rec.ChallengesCompleted)
	assert.Equal(t, 0, rec.LessonsCompleted)
}

func TestRecordActivity_LevelUpDetection(t *testing.T) {
	records := newMemRecords()
	handler := NewRecordActivityHandler(records)
	ctx := context.Background()

	// 350 -> 390: уровень 1 остаётся.
	_, _ = handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityBonus, XPDelta: 350})
	result, err := handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityBonus, XPDelta: 40})
	assert.NoError(t, err)
	assert.False(t, result.LeveledUp)

	// 390 -> 410: граница 400 пройдена.
	result, err = handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityBonus, XPDelta: 20})
	assert.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.Level)
}

func TestRecordActivity_Validation(t *testing.T) {
	handler := NewRecordActivityHandler(newMemRecords())
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordActivityCommand{UserID: "", Type: ActivityBonus, XPDelta: 10})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: "unknown", XPDelta: 10})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = handler.Handle(ctx, RecordActivityCommand{UserID: "user-1", Type: ActivityBonus, XPDelta: -10})
	assert.ErrorIs(t, err, shared.ErrNegativeXP)
}

func TestRecordActivity_ZeroDeltaIsAllowed(t *testing.T) {
	handler := NewRecordActivityHandler(newMemRecords())

	result, err := handler.Handle(context.Background(), RecordActivityCommand{
		UserID:    "user-1",
		Type:      ActivityLessonCompleted,
		XPDelta:   0,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalXP)
}
