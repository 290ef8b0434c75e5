//go:build integration

package tmdb

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cinegrid/internal/testutil"
	"github.com/Sternrassler/cinegrid/pkg/cache"
	"github.com/Sternrassler/cinegrid/pkg/ratelimit"
)

func TestIntegration_DiscoverIsCached(t *testing.T) {
	rdb := testutil.StartRedis(t)
	mock := testutil.NewMockTMDB()
	defer mock.Close()

	c := newTestClient(t, mock, rdb)
	ctx := context.Background()

	_, err := c.Discover(ctx, MediaTV, 18, 1)
	require.NoError(t, err)

	key := cache.NewKey("/discover/tv", url.Values{
		"language":    {DefaultLanguage},
		"page":        {"1"},
		"sort_by":     {DefaultSortBy},
		"with_genres": {"18"},
	})
	entry, err := c.Cache().Get(ctx, key)
	require.NoError(t, err, "drama page 1 should be cached")
	assert.NotEmpty(t, entry.ETag)

	_, err = c.Discover(ctx, MediaTV, 18, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.GetRequestCount(), "second call should be served from Redis")
}

func TestIntegration_CooldownFromAnotherInstance(t *testing.T) {
	rdb := testutil.StartRedis(t)
	mock := testutil.NewMockTMDB()
	defer mock.Close()

	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, ratelimit.RedisKeyBlockedUntil, time.Now().Add(time.Minute).UnixMilli(), time.Minute).Err())

	c := newTestClient(t, mock, rdb)
	_, err := c.Discover(ctx, MediaMovie, 0, 1)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, mock.GetRequestCount())
}

func TestIntegration_ExpiredPageIsRevalidated(t *testing.T) {
	rdb := testutil.StartRedis(t)
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.SetMaxAge(1)

	c := newTestClient(t, mock, rdb)
	ctx := context.Background()

	_, err := c.Discover(ctx, MediaTV, 18, 3)
	require.NoError(t, err)

	time.Sleep(1200 * time.Millisecond)

	_, err = c.Discover(ctx, MediaTV, 18, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.GetConditionalCount())
}
