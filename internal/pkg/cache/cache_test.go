package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapInCache(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()
	calls := 0
	fn := func() (string, error) {
		calls++
		return "board", nil
	}

	for i := 0; i < 3; i++ {
		got, err := WrapInCache(ctx, client, "leaderboard", time.Minute, fn)()
		require.NoError(t, err)
		assert.Equal(t, "board", got)
	}
	assert.Equal(t, 1, calls)
}

func TestWrapInCache_PropagatesError(t *testing.T) {
	client := NewMockClient()
	_, err := WrapInCache(context.Background(), client, "k", time.Minute, func() (string, error) {
		return "", errors.New("boom")
	})()
	assert.Error(t, err)
	_, err = client.Get(context.Background(), "k").Result()
	assert.True(t, IsMiss(err))
}

func TestTryLock(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	client.Now = func() time.Time { return now }

	lock, ok, err := TryLock(ctx, client, "sweep", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = TryLock(ctx, client, "sweep", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, lock.Release(ctx))
	_, ok, err = TryLock(ctx, client, "sweep", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(6 * time.Minute)
	_, ok, err = TryLock(ctx, client, "sweep", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is free again")
}

func TestMarkOnce(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()

	first, err := MarkOnce(ctx, client, "reminder:u1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkOnce(ctx, client, "reminder:u1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)
}
