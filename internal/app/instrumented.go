package app

import (
	"context"
	"errors"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// queryErr hides misses, which are expected on read paths.
func queryErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// instrumentedBarStore records query timings for a database-backed BarStore.
type instrumentedBarStore struct {
	next     storage.BarStore
	database string
	metrics  *observability.Metrics
}

var _ storage.BarStore = (*instrumentedBarStore)(nil)

func (s *instrumentedBarStore) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	began := time.Now()
	err := s.next.InsertBulk(ctx, bars)
	s.metrics.RecordDBQuery(s.database, "insert_bars", time.Since(began), err)
	return err
}

func (s *instrumentedBarStore) GetRange(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	began := time.Now()
	bars, err := s.next.GetRange(ctx, ticker, start, end)
	s.metrics.RecordDBQuery(s.database, "get_bar_range", time.Since(began), queryErr(err))
	return bars, err
}

func (s *instrumentedBarStore) GetAll(ctx context.Context, ticker string) ([]domain.Bar, error) {
	began := time.Now()
	bars, err := s.next.GetAll(ctx, ticker)
	s.metrics.RecordDBQuery(s.database, "get_bars", time.Since(began), queryErr(err))
	return bars, err
}

func (s *instrumentedBarStore) Tickers(ctx context.Context) ([]string, error) {
	began := time.Now()
	tickers, err := s.next.Tickers(ctx)
	s.metrics.RecordDBQuery(s.database, "tickers", time.Since(began), err)
	return tickers, err
}

// instrumentedRunStore records query timings for a database-backed RunStore.
type instrumentedRunStore struct {
	next     storage.RunStore
	database string
	metrics  *observability.Metrics
}

var _ storage.RunStore = (*instrumentedRunStore)(nil)

func (s *instrumentedRunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	began := time.Now()
	err := s.next.Insert(ctx, r)
	s.metrics.RecordDBQuery(s.database, "insert_run", time.Since(began), err)
	return err
}

func (s *instrumentedRunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	began := time.Now()
	r, err := s.next.GetByID(ctx, runID)
	s.metrics.RecordDBQuery(s.database, "get_run", time.Since(began), queryErr(err))
	return r, err
}

func (s *instrumentedRunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.RunRecord, error) {
	began := time.Now()
	runs, err := s.next.GetByTicker(ctx, ticker)
	s.metrics.RecordDBQuery(s.database, "get_runs_by_ticker", time.Since(began), err)
	return runs, err
}
