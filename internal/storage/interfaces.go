package storage

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
)

// BarStore provides access to daily bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars atomically. Fails entire batch on any duplicate (ticker, date).
	InsertBulk(ctx context.Context, bars []domain.Bar) error

	// GetRange retrieves bars for a ticker within [start, end] (inclusive), ordered by date ASC.
	GetRange(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error)

	// GetAll retrieves all bars for a ticker, ordered by date ASC.
	GetAll(ctx context.Context, ticker string) ([]domain.Bar, error)

	// Tickers returns the distinct tickers held, sorted ASC.
	Tickers(ctx context.Context) ([]string, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run with its trades. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC, run_id ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.RunRecord, error)
}

// SeriesCache is a read-through cache of price series keyed by (ticker, start, end).
type SeriesCache interface {
	// Get returns the cached series. Returns ErrNotFound on a miss.
	Get(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error)

	// Set stores a series under (ticker, start, end).
	Set(ctx context.Context, series domain.PriceSeries, start, end time.Time) error
}

// CacheKey builds the cache key for a ticker and date range.
func CacheKey(ticker string, start, end time.Time) string {
	return ticker + "_" + start.Format(domain.DateLayout) + "_" + end.Format(domain.DateLayout)
}
