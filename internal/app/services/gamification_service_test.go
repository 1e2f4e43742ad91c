package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{999, 4},
		{1000, 5},
		{7499, 8},
		{7500, 9},
		{10000, 10},
		{14999, 10},
		{15000, 11},
		{25000, 13},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, CalculateLevel(tc.points), "points=%d", tc.points)
	}
}

func TestAward_UpdatesLevel(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "climber")

	env.services.Gamification.Award(env.ctx, u.ID, 120, "test")
	stored := env.reloadUser(t, u.ID)
	assert.Equal(t, 120, stored.Points)
	assert.Equal(t, 2, stored.Level)

	env.services.Gamification.Award(env.ctx, u.ID, 400, "test")
	stored = env.reloadUser(t, u.ID)
	assert.Equal(t, 520, stored.Points)
	assert.Equal(t, 4, stored.Level)
}

func TestLeaderboard_RanksAndCaches(t *testing.T) {
	env := newTestEnv(t)
	owner, a, b := env.user(t, "owner"), env.user(t, "alice"), env.user(t, "bob")
	outsider := env.user(t, "outsider")
	c := env.community(t, owner, nil)
	env.addMember(t, c, a)
	env.addMember(t, c, b)

	g := env.services.Gamification
	g.Award(env.ctx, a.ID, 300, "test")
	g.Award(env.ctx, b.ID, 50, "test")
	g.Award(env.ctx, outsider.ID, 9000, "test")

	board, err := g.Leaderboard(env.ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 300, board[0].Points)
	assert.Equal(t, "bob", board[1].Username)

	// served from the cache until the entry expires
	g.Award(env.ctx, b.ID, 1000, "test")
	cached, err := g.Leaderboard(env.ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "alice", cached[0].Username)

	require.NoError(t, env.cache.Del(env.ctx, "leaderboard:"+c.ID.Hex()+":2").Err())
	fresh, err := g.Leaderboard(env.ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", fresh[0].Username)
}

func TestLeaderboard_ClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)

	board, err := env.services.Gamification.Leaderboard(env.ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, board, 1)

	_, err = env.services.Gamification.Leaderboard(env.ctx, c.ID, 1000)
	require.NoError(t, err)
	_, err = env.cache.Get(env.ctx, "leaderboard:"+c.ID.Hex()+":100").Result()
	assert.NoError(t, err)
}
