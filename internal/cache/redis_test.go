package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakesanders16/mini-youtube/internal/config"
	"github.com/jakesanders16/mini-youtube/internal/model"
)

func setupCache(t *testing.T) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLeaderboardCache(client, time.Minute), mr
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	q := model.LeaderboardQuery{Epoch: model.EpochMonth, Month: "2026-03", Limit: 10}

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, ok, err := c.GetEntries(ctx, gen, q)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache misses")

	entries := []model.LeaderboardEntry{
		{UserID: 2, Username: "ana", Points: 55, Rank: 1},
		{UserID: 1, Username: "ben", Points: 5, Rank: 2},
	}
	require.NoError(t, c.SetEntries(ctx, gen, q, entries))

	got, ok, err := c.GetEntries(ctx, gen, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entries, got)

	other := q
	other.Epoch = model.EpochAllTime
	other.Month = ""
	_, ok, err = c.GetEntries(ctx, gen, other)
	require.NoError(t, err)
	assert.False(t, ok, "different query has its own key")

	april := q
	april.Month = "2026-04"
	_, ok, err = c.GetEntries(ctx, gen, april)
	require.NoError(t, err)
	assert.False(t, ok, "each month has its own key")
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SetGyms(ctx, gen, "2026-03", 5, []model.GymStanding{{GymID: 1, Name: "Iron Temple", Points: 80, Rank: 1}}))
	_, ok, err := c.GetGyms(ctx, gen, "2026-03", 5)
	require.NoError(t, err)
	require.True(t, ok)

	c.Invalidate(ctx)

	next, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	_, ok, err = c.GetGyms(ctx, next, "2026-03", 5)
	require.NoError(t, err)
	assert.False(t, ok, "pages from an older generation are not served")
}

func TestLeaderboardCacheWriteAfterInvalidateIsOrphaned(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	q := model.LeaderboardQuery{Epoch: model.EpochAllTime, Limit: 10}

	// A reader takes the generation and misses.
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := c.GetEntries(ctx, gen, q)
	require.NoError(t, err)
	require.False(t, ok)

	// A ledger write commits and invalidates before the reader stores
	// the page it computed from the old data.
	c.Invalidate(ctx)
	stale := []model.LeaderboardEntry{{UserID: 1, Points: 5, Rank: 1}}
	require.NoError(t, c.SetEntries(ctx, gen, q, stale))

	next, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err = c.GetEntries(ctx, next, q)
	require.NoError(t, err)
	assert.False(t, ok, "a page computed before the invalidation is never served")
}

func TestLeaderboardCacheTTL(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	q := model.LeaderboardQuery{Epoch: model.EpochAllTime, Limit: 3}

	require.NoError(t, c.SetEntries(ctx, 0, q, []model.LeaderboardEntry{{UserID: 1, Rank: 1}}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.GetEntries(ctx, 0, q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaderboardCacheUnavailable(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()
	ctx := context.Background()

	_, err := c.Generation(ctx)
	assert.Error(t, err)

	_, ok, err := c.GetEntries(ctx, 0, model.LeaderboardQuery{Epoch: model.EpochMonth, Limit: 1})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNilClientAlwaysMisses(t *testing.T) {
	c := NewLeaderboardCache(nil, time.Minute)
	ctx := context.Background()
	q := model.LeaderboardQuery{Epoch: model.EpochMonth, Limit: 1}

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SetEntries(ctx, gen, q, []model.LeaderboardEntry{{UserID: 1}}))
	_, ok, err := c.GetEntries(ctx, gen, q)
	assert.NoError(t, err)
	assert.False(t, ok)
	c.Invalidate(ctx)
	assert.NoError(t, c.Ping(ctx))
}
