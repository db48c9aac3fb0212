package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance_FirstActivity(t *testing.T) {
	s := NewState("user-1")

	tr := s.Advance(day(2026, 3, 1).Add(10*time.Hour), false)
	assert.Equal(t, TransitionStarted, tr.Kind)
	assert.Equal(t, 1, tr.CurrentStreak)
	assert.Equal(t, 1, tr.LongestStreak)
	assert.Equal(t, day(2026, 3, 1), s.LastActiveDate)
}

func TestAdvance_SameDayIsIdempotent(t *testing.T) {
	s := NewState("user-1")
	s.Advance(day(2026, 3, 1), false)

	tr := s.Advance(day(2026, 3, 1).Add(23*time.Hour), false)
	assert.Equal(t, TransitionNoop, tr.Kind)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, day(2026, 3, 1), s.LastActiveDate)
}

func TestAdvance_ConsecutiveDayExtends(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 5
	s.LongestStreak = 5
	s.LastActiveDate = day(2026, 3, 1)

	tr := s.Advance(day(2026, 3, 2), false)
	assert.Equal(t, TransitionExtended, tr.Kind)
	assert.Equal(t, 6, tr.CurrentStreak)
	assert.Equal(t, 6, tr.LongestStreak)
}

func TestAdvance_ExtendDoesNotLowerRecord(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 2
	s.LongestStreak = 30
	s.LastActiveDate = day(2026, 3, 1)

	tr := s.Advance(day(2026, 3, 2), false)
	assert.Equal(t, 3, tr.CurrentStreak)
	assert.Equal(t, 30, tr.LongestStreak)
}

func TestAdvance_GapResetsToOne(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 10
	s.LongestStreak = 10
	s.LastActiveDate = day(2026, 3, 1)

	tr := s.Advance(day(2026, 3, 4), false)
	assert.Equal(t, TransitionReset, tr.Kind)
	assert.Equal(t, 1, tr.CurrentStreak)
	assert.Equal(t, 10, tr.LongestStreak)
	assert.Nil(t, tr.Milestone)
	// Сброшенный стрик стартует со свежей заморозкой.
	assert.Equal(t, 1, s.FreezesAvailable)
	assert.True(t, s.FreezeActiveDate.IsZero())
}

func TestAdvance_FreezeCoversGap(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 10
	s.LongestStreak = 10
	s.LastActiveDate = day(2026, 3, 1)
	s.FreezesAvailable = 1

	tr := s.Advance(day(2026, 3, 3), true)
	assert.Equal(t, TransitionFrozen, tr.Kind)
	assert.Equal(t, 11, tr.CurrentStreak)
	assert.Equal(t, 11, tr.LongestStreak)
	assert.Equal(t, 0, s.FreezesAvailable)
	assert.Equal(t, day(2026, 3, 2), s.FreezeActiveDate)
}

func TestAdvance_FreezeRequestedButNoneAvailable(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 10
	s.LongestStreak = 10
	s.LastActiveDate = day(2026, 3, 1)
	s.FreezesAvailable = 0

	tr := s.Advance(day(2026, 3, 3), true)
	assert.Equal(t, TransitionReset, tr.Kind)
	assert.Equal(t, 1, tr.CurrentStreak)
}

func TestAdvance_FreezeNotConsumedOnConsecutiveDay(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 3
	s.LongestStreak = 3
	s.LastActiveDate = day(2026, 3, 1)
	s.FreezesAvailable = 1

	tr := s.Advance(day(2026, 3, 2), true)
	assert.Equal(t, TransitionExtended, tr.Kind)
	assert.Equal(t, 1, s.FreezesAvailable)
}

func TestAdvance_MilestoneOnExtension(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 6
	s.LongestStreak = 6
	s.LastActiveDate = day(2026, 3, 1)

	tr := s.Advance(day(2026, 3, 2), false)
	assert.Equal(t, TransitionExtended, tr.Kind)
	if assert.NotNil(t, tr.Milestone) {
		assert.Equal(t, 7, tr.Milestone.Days)
		assert.Equal(t, "Week Warrior", tr.Milestone.Name)
		assert.Equal(t, 100, tr.Milestone.XPReward)
	}
}

func TestAdvance_NoMilestoneOnNoop(t *testing.T) {
	s := NewState("user-1")
	s.CurrentStreak = 7
	s.LongestStreak = 7
	s.LastActiveDate = day(2026, 3, 1)

	tr := s.Advance(day(2026, 3, 1), false)
	assert.Equal(t, TransitionNoop, tr.Kind)
	assert.Nil(t, tr.Milestone)
}

func TestMilestoneFor(t *testing.T) {
	m := MilestoneFor(3)
	if assert.NotNil(t, m) {
		assert.Equal(t, "Getting Started", m.Name)
		assert.Equal(t, 25, m.XPReward)
	}
	assert.Nil(t, MilestoneFor(4))
	assert.Nil(t, MilestoneFor(0))

	m = MilestoneFor(365)
	if assert.NotNil(t, m) {
		assert.Equal(t, "Yearly Legend", m.Name)
	}
}

func TestNextMilestoneAfter(t *testing.T) {
	m := NextMilestoneAfter(0)
	if assert.NotNil(t, m) {
		assert.Equal(t, 3, m.Days)
	}

	m = NextMilestoneAfter(7)
	if assert.NotNil(t, m) {
		assert.Equal(t, 14, m.Days)
	}

	assert.Nil(t, NextMilestoneAfter(365))
}

func TestAtRisk(t *testing.T) {
	s := NewState("user-1")
	assert.False(t, s.AtRisk(day(2026, 3, 1)))

	s.CurrentStreak = 5
	s.LastActiveDate = day(2026, 3, 1)
	assert.False(t, s.AtRisk(day(2026, 3, 1).Add(20*time.Hour)))
	assert.True(t, s.AtRisk(day(2026, 3, 2).Add(8*time.Hour)))
}

func TestValidate(t *testing.T) {
	s := NewState("user-1")
	assert.NoError(t, s.Validate())

	s.CurrentStreak = 5
	s.LongestStreak = 3
	assert.Error(t, s.Validate())

	s = NewState("")
	assert.Error(t, s.Validate())
}
