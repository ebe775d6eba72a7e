package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/storage/memory"
)

// countingProvider serves weekday bars from a fixed generator and counts calls.
type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) Fetch(_ context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	p.calls.Add(1)
	if p.err != nil {
		return domain.PriceSeries{}, p.err
	}
	var bars []domain.Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, domain.Bar{Ticker: ticker, Date: d, Close: float64(100 + d.Day())})
	}
	return domain.PriceSeries{Ticker: ticker, Bars: bars}, nil
}

func newTestLoader(p Provider, opts ...LoaderOption) *Loader {
	opts = append(opts, WithMetrics(observability.NewMetrics("test", prometheus.NewRegistry())))
	return NewLoader(p, opts...)
}

func TestLoader_FetcherOnly(t *testing.T) {
	p := &countingProvider{}
	l := newTestLoader(p)

	series, err := l.Fetch(context.Background(), "SPY", date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 23, series.Len())
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestLoader_CacheHit(t *testing.T) {
	p := &countingProvider{}
	cache := memory.NewSeriesCache(time.Hour)
	l := newTestLoader(p, WithCache(cache))
	ctx := context.Background()

	first, err := l.Fetch(ctx, "SPY", date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	second, err := l.Fetch(ctx, "SPY", date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load(), "second fetch should be served from cache")
	assert.Equal(t, first.Closes(), second.Closes())
}

func TestLoader_StoreHitAndWriteBack(t *testing.T) {
	p := &countingProvider{}
	store := memory.NewBarStore()
	l := newTestLoader(p, WithStore(store))
	ctx := context.Background()

	_, err := l.Fetch(ctx, "SPY", date(2024, 1, 1), date(2024, 3, 29))
	require.NoError(t, err)

	stored, err := store.GetAll(ctx, "SPY")
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	// narrower range is covered by the store
	series, err := l.Fetch(ctx, "SPY", date(2024, 2, 1), date(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.True(t, series.Bars[0].Date.Equal(date(2024, 2, 1)))
}

func TestLoader_PartialStoreIsExtended(t *testing.T) {
	p := &countingProvider{}
	store := memory.NewBarStore()
	l := newTestLoader(p, WithStore(store))
	ctx := context.Background()

	_, err := l.Fetch(ctx, "SPY", date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	// wider range forces a refetch; only new bars are inserted
	series, err := l.Fetch(ctx, "SPY", date(2024, 1, 1), date(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())

	stored, err := store.GetAll(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, series.Len(), len(stored))
}

func TestLoader_FallsBackToPartialStore(t *testing.T) {
	store := memory.NewBarStore()
	require.NoError(t, store.InsertBulk(context.Background(), []domain.Bar{
		{Ticker: "SPY", Date: date(2024, 1, 2), Close: 1},
		{Ticker: "SPY", Date: date(2024, 1, 3), Close: 2},
	}))
	p := &countingProvider{err: ErrNoData}
	l := newTestLoader(p, WithStore(store))

	series, err := l.Fetch(context.Background(), "SPY", date(2024, 1, 1), date(2024, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestLoader_FetchError(t *testing.T) {
	boom := errors.New("upstream down")
	l := newTestLoader(&countingProvider{err: boom})

	_, err := l.Fetch(context.Background(), "SPY", date(2024, 1, 1), date(2024, 1, 31))
	assert.ErrorIs(t, err, boom)
}

func TestLoader_InvalidInput(t *testing.T) {
	l := newTestLoader(&countingProvider{})

	_, err := l.Fetch(context.Background(), "", date(2024, 1, 1), date(2024, 1, 31))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = l.Fetch(context.Background(), "SPY", date(2024, 2, 1), date(2024, 1, 1))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCovers(t *testing.T) {
	bars := []domain.Bar{{Date: date(2024, 1, 2)}, {Date: date(2024, 1, 30)}}
	assert.True(t, covers(bars, date(2024, 1, 1), date(2024, 1, 31)))
	assert.False(t, covers(bars, date(2023, 12, 1), date(2024, 1, 31)))
	assert.False(t, covers(bars, date(2024, 1, 1), date(2024, 3, 1)))
	assert.False(t, covers(nil, date(2024, 1, 1), date(2024, 1, 31)))
}
