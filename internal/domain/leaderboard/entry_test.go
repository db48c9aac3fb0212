package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

func record(userID string, totalXP int64, streak int) *xp.Record {
	return &xp.Record{
		UserID:        xp.UserID(userID),
		TotalXP:       xp.XP(totalXP),
		CurrentStreak: streak,
	}
}

func userOrder(records []*xp.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.UserID)
	}
	return out
}

func TestSortRecords_ByXPDescending(t *testing.T) {
	records := []*xp.Record{
		record("alice", 500, 3),
		record("bob", 1500, 1),
		record("carol", 900, 7),
	}

	SortRecords(records, xp.SortByXP)
	assert.Equal(t, []string{"bob", "carol", "alice"}, userOrder(records))
}

func TestSortRecords_TiesBreakByTotalXPThenUserID(t *testing.T) {
	records := []*xp.Record{
		record("zoe", 700, 5),
		record("amy", 700, 5),
		record("bea", 900, 5),
	}

	// Все трое с одинаковым стриком: решает TotalXP, затем UserID.
	SortRecords(records, xp.SortByStreak)
	assert.Equal(t, []string{"bea", "amy", "zoe"}, userOrder(records))
}

func TestSortRecords_Deterministic(t *testing.T) {
	build := func() []*xp.Record {
		return []*xp.Record{
			record("d", 100, 1),
			record("b", 100, 1),
			record("a", 100, 1),
			record("c", 100, 1),
		}
	}

	first := build()
	SortRecords(first, xp.SortByXP)
	second := build()
	SortRecords(second, xp.SortByXP)
	assert.Equal(t, userOrder(first), userOrder(second))
	assert.Equal(t, []string{"a", "b", "c", "d"}, userOrder(first))
}

func TestEntryFromRecord(t *testing.T) {
	activity := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := &xp.Record{
		UserID:              "user-1",
		WalletAddress:       "4Nd1mYvLhyuqzv4HCGnXDsMWV8UqYpAiGCs4k2FSQqk4",
		TotalXP:             2500,
		CurrentStreak:       14,
		CoursesCompleted:    2,
		ChallengesCompleted: 30,
		LastActivityAt:      activity,
	}

	entry := EntryFromRecord(rec)
	assert.Equal(t, Rank(0), entry.Rank)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, int64(2500), entry.TotalXP)
	assert.Equal(t, 5, entry.Level)
	assert.Equal(t, "Architect", entry.Title)
	assert.Equal(t, 14, entry.CurrentStreak)
	assert.Equal(t, activity, entry.LastActivityAt)
}

func TestPage_RanksAreAbsolute(t *testing.T) {
	records := []*xp.Record{
		record("u1", 500, 0),
		record("u2", 400, 0),
		record("u3", 300, 0),
		record("u4", 200, 0),
		record("u5", 100, 0),
	}
	spec, _ := QuerySpec{Limit: 2, Offset: 2}.Normalize()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	result := Page(records, spec, now)
	assert.Equal(t, 5, result.Total)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, Rank(3), result.Entries[0].Rank)
	assert.Equal(t, "u3", result.Entries[0].UserID)
	assert.Equal(t, Rank(4), result.Entries[1].Rank)
	assert.Equal(t, "u4", result.Entries[1].UserID)
	assert.Equal(t, now, result.GeneratedAt)
}

func TestPage_OffsetBeyondTotal(t *testing.T) {
	records := []*xp.Record{record("u1", 500, 0)}
	spec, _ := QuerySpec{Limit: 10, Offset: 50}.Normalize()

	result := Page(records, spec, time.Now())
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, result.Entries)
}

func TestPage_LimitClampedToRemainder(t *testing.T) {
	records := []*xp.Record{
		record("u1", 300, 0),
		record("u2", 200, 0),
		record("u3", 100, 0),
	}
	spec, _ := QuerySpec{Limit: 10, Offset: 2}.Normalize()

	result := Page(records, spec, time.Now())
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Entries, 1)
	assert.Equal(t, Rank(3), result.Entries[0].Rank)
}

func TestPage_EmptyInput(t *testing.T) {
	spec, _ := QuerySpec{}.Normalize()

	result := Page(nil, spec, time.Now())
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Entries)
	assert.Equal(t, TimeframeAllTime, result.Timeframe)
}
