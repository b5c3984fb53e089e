package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a crawled page is served from cache.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "foodtruck:page:"

// CachedCrawler serves crawl results from Redis, delegating misses to another Crawler.
// Redis failures are logged and bypassed.
type CachedCrawler struct {
	next   Crawler
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCrawler wraps next with a Redis cache.
func NewCachedCrawler(next Crawler, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCrawler {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedCrawler{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey returns the Redis key for a URL.
func CacheKey(urlStr string) string {
	return cacheKeyPrefix + NormalizeURL(urlStr)
}

// Crawl implements Crawler.
func (c *CachedCrawler) Crawl(ctx context.Context, urlStr string) (*CrawlResult, error) {
	key := CacheKey(urlStr)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached CrawlResult
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			cached.FromCache = true
			return &cached, nil
		}
		c.logger.Warn("Discarding corrupt cache entry", zap.String("url", urlStr))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Page cache read failed", zap.String("url", urlStr), zap.Error(err))
	}

	res, err := c.next.Crawl(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(res); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("Page cache write failed", zap.String("url", urlStr), zap.Error(err))
		}
	}
	return res, nil
}
