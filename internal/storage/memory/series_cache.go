package memory

import (
	"context"
	"sync"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// SeriesCache is an in-memory implementation of storage.SeriesCache with per-entry TTL.
// A zero TTL keeps entries forever.
type SeriesCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	series  domain.PriceSeries
	expires time.Time
}

// NewSeriesCache creates a new in-memory series cache.
func NewSeriesCache(ttl time.Duration) *SeriesCache {
	return &SeriesCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock sets a custom clock (for testing).
func (c *SeriesCache) WithClock(now func() time.Time) *SeriesCache {
	c.now = now
	return c
}

// Get returns the cached series. Returns ErrNotFound on a miss or expired entry.
func (c *SeriesCache) Get(_ context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	key := storage.CacheKey(ticker, start, end)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return domain.PriceSeries{}, storage.ErrNotFound
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return domain.PriceSeries{}, storage.ErrNotFound
	}
	return copySeries(e.series), nil
}

// Set stores a series under (series.Ticker, start, end).
func (c *SeriesCache) Set(_ context.Context, series domain.PriceSeries, start, end time.Time) error {
	if series.Ticker == "" {
		return storage.ErrInvalidInput
	}
	e := cacheEntry{series: copySeries(series)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[storage.CacheKey(series.Ticker, start, end)] = e
	c.mu.Unlock()
	return nil
}

func copySeries(p domain.PriceSeries) domain.PriceSeries {
	return domain.PriceSeries{
		Ticker: p.Ticker,
		Bars:   append(p.Bars[:0:0], p.Bars...),
	}
}

var _ storage.SeriesCache = (*SeriesCache)(nil)
