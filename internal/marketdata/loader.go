package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// coverageSlack tolerates weekends and market holidays at the edges of a stored range.
const coverageSlack = 5 * 24 * time.Hour

// Loader serves price series from a cache, then a bar store, then an upstream fetcher,
// writing fetched data back to the tiers above it. Cache and store are optional.
type Loader struct {
	fetcher Provider
	store   storage.BarStore
	cache   storage.SeriesCache
	logger  *zap.Logger
	metrics *observability.Metrics
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStore sets the persistent bar store tier.
func WithStore(store storage.BarStore) LoaderOption {
	return func(l *Loader) {
		l.store = store
	}
}

// WithCache sets the series cache tier.
func WithCache(cache storage.SeriesCache) LoaderOption {
	return func(l *Loader) {
		l.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) LoaderOption {
	return func(l *Loader) {
		if m != nil {
			l.metrics = m
		}
	}
}

// NewLoader creates a loader over fetcher.
func NewLoader(fetcher Provider, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: fetcher,
		logger:  zap.NewNop(),
		metrics: observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Compile-time interface check.
var _ Provider = (*Loader)(nil)

// Fetch returns the series for ticker within [start, end].
func (l *Loader) Fetch(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	if ticker == "" {
		return domain.PriceSeries{}, fmt.Errorf("%w: empty ticker", storage.ErrInvalidInput)
	}
	if end.Before(start) {
		return domain.PriceSeries{}, fmt.Errorf("%w: end %s before start %s", storage.ErrInvalidInput,
			end.Format(domain.DateLayout), start.Format(domain.DateLayout))
	}
	log := l.logger.With(zap.String("ticker", ticker),
		zap.String("start", start.Format(domain.DateLayout)),
		zap.String("end", end.Format(domain.DateLayout)))

	if l.cache != nil {
		series, err := l.cache.Get(ctx, ticker, start, end)
		switch {
		case err == nil && series.Len() > 0:
			l.metrics.RecordLookup(observability.TierCache)
			log.Debug("series served from cache", zap.Int("bars", series.Len()))
			return series, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			log.Warn("cache lookup failed", zap.Error(err))
		}
	}

	var stored []domain.Bar
	if l.store != nil {
		bars, err := l.store.GetRange(ctx, ticker, start, end)
		if err != nil {
			log.Warn("bar store lookup failed", zap.Error(err))
		} else {
			stored = bars
		}
		if covers(stored, start, end) {
			series := domain.PriceSeries{Ticker: ticker, Bars: stored}
			l.metrics.RecordLookup(observability.TierStore)
			log.Debug("series served from store", zap.Int("bars", len(stored)))
			l.fillCache(ctx, log, series, start, end)
			return series, nil
		}
	}

	began := time.Now()
	series, err := l.fetcher.Fetch(ctx, ticker, start, end)
	if err != nil {
		if errors.Is(err, ErrNoData) && len(stored) > 0 {
			log.Warn("upstream has no data, serving partial stored range", zap.Int("bars", len(stored)))
			return domain.PriceSeries{Ticker: ticker, Bars: stored}, nil
		}
		return domain.PriceSeries{}, err
	}
	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("fetched series for %s: %w", ticker, err)
	}
	l.metrics.RecordLookup(observability.TierFetcher)
	l.metrics.RecordFetch("upstream", series.Len(), time.Since(began))
	log.Info("series fetched", zap.Int("bars", series.Len()), zap.Duration("took", time.Since(began)))

	if l.store != nil {
		l.persist(ctx, log, series.Bars, stored)
	}
	l.fillCache(ctx, log, series, start, end)
	return series, nil
}

// persist writes fetched bars that the store does not already hold.
func (l *Loader) persist(ctx context.Context, log *zap.Logger, fetched, stored []domain.Bar) {
	have := make(map[string]struct{}, len(stored))
	for _, b := range stored {
		have[b.Date.Format(domain.DateLayout)] = struct{}{}
	}
	var fresh []domain.Bar
	for _, b := range fetched {
		if _, ok := have[b.Date.Format(domain.DateLayout)]; !ok {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := l.store.InsertBulk(ctx, fresh); err != nil {
		log.Warn("persist fetched bars failed", zap.Int("bars", len(fresh)), zap.Error(err))
		return
	}
	log.Debug("persisted fetched bars", zap.Int("bars", len(fresh)))
}

func (l *Loader) fillCache(ctx context.Context, log *zap.Logger, series domain.PriceSeries, start, end time.Time) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, series, start, end); err != nil {
		log.Warn("cache fill failed", zap.Error(err))
	}
}

// covers reports whether sorted bars span [start, end] up to coverageSlack at each edge.
func covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	first := bars[0].Date
	last := bars[len(bars)-1].Date
	return !first.After(start.Add(coverageSlack)) && !last.Before(end.Add(-coverageSlack))
}
