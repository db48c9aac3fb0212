package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 3, 15, 18, 42, 7, 123, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestStartOfDay_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 03:00 local on March 16 is still March 15 in UTC.
	in := time.Date(2026, 3, 16, 3, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(b, c))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 31, DaysBetween(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	// 2026-03-11 is a Wednesday, 2026-03-15 a Sunday.
	assert.Equal(t, monday, StartOfWeek(time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday, StartOfWeek(time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday, StartOfWeek(monday))
}

func TestStartOfMonth(t *testing.T) {
	in := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(in))
}

func TestDaysAgo(t *testing.T) {
	in := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), DaysAgo(in, 7))
}

func TestFormatAndParseDate(t *testing.T) {
	in := time.Date(2026, 3, 5, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-05", FormatDate(in))

	parsed, err := ParseDate("2026-03-05")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("05.03.2026")
	assert.Error(t, err)
}
