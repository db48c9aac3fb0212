package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

func TestGetUserRank_TopUser(t *testing.T) {
	repo := &fakeRepo{records: []*xp.Record{
		{UserID: "gold", TotalXP: 900, LeaderboardEligible: true},
		{UserID: "silver", TotalXP: 500, LeaderboardEligible: true},
	}}
	handler := NewGetUserRankHandler(repo)

	rank, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "gold"})
	assert.NoError(t, err)
	assert.Equal(t, 1, rank.Rank)
	assert.Equal(t, int64(900), rank.Metric)
	assert.Equal(t, int64(900), rank.TotalXP)
	assert.Equal(t, 3, rank.Level)
}

func TestGetUserRank_TiedUsersShareRank(t *testing.T) {
	repo := &fakeRepo{records: []*xp.Record{
		{UserID: "gold", TotalXP: 900, LeaderboardEligible: true},
		{UserID: "tied-a", TotalXP: 500, LeaderboardEligible: true},
		{UserID: "tied-b", TotalXP: 500, LeaderboardEligible: true},
		{UserID: "last", TotalXP: 100, LeaderboardEligible: true},
	}}
	handler := NewGetUserRankHandler(repo)

	rankA, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "tied-a"})
	assert.NoError(t, err)
	rankB, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "tied-b"})
	assert.NoError(t, err)

	assert.Equal(t, 2, rankA.Rank)
	assert.Equal(t, rankA.Rank, rankB.Rank)

	// Следующий после группы равных получает ранг со сквозным сдвигом.
	rankLast, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "last"})
	assert.NoError(t, err)
	assert.Equal(t, 4, rankLast.Rank)
}

func TestGetUserRank_AlternativeMetric(t *testing.T) {
	repo := &fakeRepo{records: []*xp.Record{
		{UserID: "streaker", TotalXP: 100, CurrentStreak: 30, LeaderboardEligible: true},
		{UserID: "grinder", TotalXP: 9000, CurrentStreak: 2, LeaderboardEligible: true},
	}}
	handler := NewGetUserRankHandler(repo)

	rank, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "streaker", SortBy: xp.SortByStreak})
	assert.NoError(t, err)
	assert.Equal(t, 1, rank.Rank)
	assert.Equal(t, int64(30), rank.Metric)
}

func TestGetUserRank_UnknownUser(t *testing.T) {
	handler := NewGetUserRankHandler(&fakeRepo{})

	_, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetUserRank_Validation(t *testing.T) {
	handler := NewGetUserRankHandler(&fakeRepo{})

	_, err := handler.Handle(context.Background(), GetUserRankQuery{UserID: ""})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = handler.Handle(context.Background(), GetUserRankQuery{UserID: "user-1", SortBy: "height"})
	assert.ErrorIs(t, err, shared.ErrInvalidSortBy)
}
