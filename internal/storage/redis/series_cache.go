// Package redis caches price series in Redis as JSON with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// DefaultTTL is how long a cached series stays valid.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "backtest:series:"

// SeriesCache implements storage.SeriesCache on a Redis client.
type SeriesCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeriesCache creates a cache over rdb. A non-positive ttl uses DefaultTTL.
func NewSeriesCache(rdb *redis.Client, ttl time.Duration) *SeriesCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeriesCache{rdb: rdb, ttl: ttl}
}

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Compile-time interface check.
var _ storage.SeriesCache = (*SeriesCache)(nil)

// Get returns the cached series. Returns ErrNotFound on a miss or an undecodable entry.
func (c *SeriesCache) Get(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	data, err := c.rdb.Get(ctx, seriesKey(ticker, start, end)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PriceSeries{}, storage.ErrNotFound
		}
		return domain.PriceSeries{}, fmt.Errorf("redis get: %w", err)
	}

	var series domain.PriceSeries
	if err := json.Unmarshal(data, &series); err != nil {
		// treat corrupt entries as misses; the next Set overwrites them
		return domain.PriceSeries{}, storage.ErrNotFound
	}
	return series, nil
}

// Set stores a series under (series.Ticker, start, end) with the cache TTL.
func (c *SeriesCache) Set(ctx context.Context, series domain.PriceSeries, start, end time.Time) error {
	if series.Ticker == "" {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := c.rdb.Set(ctx, seriesKey(series.Ticker, start, end), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes a cached range.
func (c *SeriesCache) Invalidate(ctx context.Context, ticker string, start, end time.Time) error {
	return c.rdb.Del(ctx, seriesKey(ticker, start, end)).Err()
}

func seriesKey(ticker string, start, end time.Time) string {
	return keyPrefix + storage.CacheKey(ticker, start, end)
}
