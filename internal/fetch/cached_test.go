package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCrawler struct {
	calls int
	err   error
}

func (c *countingCrawler) Crawl(_ context.Context, url string) (*CrawlResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &CrawlResult{URL: url, SourceURL: url, Markdown: "# Taco Loco", StatusCode: 200}, nil
}

func newCache(t *testing.T, next Crawler, ttl time.Duration) (*CachedCrawler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedCrawler(next, rdb, ttl, zap.NewNop()), mr
}

func TestCachedCrawler_HitAndMiss(t *testing.T) {
	next := &countingCrawler{}
	cache, mr := newCache(t, next, time.Hour)
	ctx := context.Background()

	first, err := cache.Crawl(ctx, "https://www.tacoloco.com/")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	// equivalent URL hits the same key
	second, err := cache.Crawl(ctx, "https://tacoloco.com")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "# Taco Loco", second.Markdown)
	assert.Equal(t, 1, next.calls)

	assert.True(t, mr.Exists(CacheKey("https://tacoloco.com")))
	mr.FastForward(2 * time.Hour)

	_, err = cache.Crawl(ctx, "https://tacoloco.com")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedCrawler_ErrorsNotCached(t *testing.T) {
	next := &countingCrawler{err: errors.New("boom")}
	cache, mr := newCache(t, next, time.Hour)

	_, err := cache.Crawl(context.Background(), "https://tacoloco.com")
	require.Error(t, err)
	assert.False(t, mr.Exists(CacheKey("https://tacoloco.com")))
}

func TestCachedCrawler_RedisDownFallsThrough(t *testing.T) {
	next := &countingCrawler{}
	cache, mr := newCache(t, next, time.Hour)
	mr.Close()

	res, err := cache.Crawl(context.Background(), "https://tacoloco.com")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, next.calls)
}
