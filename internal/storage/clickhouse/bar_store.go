package clickhouse

import (
	"context"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (ticker, date).
func (s *BarStore) InsertBulk(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates and collect the date span per ticker
	type key struct {
		ticker string
		day    string
	}
	type span struct{ min, max time.Time }
	seen := make(map[key]struct{}, len(bars))
	spans := make(map[string]*span)
	for _, b := range bars {
		if b.Ticker == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{b.Ticker, b.Date.Format(domain.DateLayout)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sp, ok := spans[b.Ticker]
		if !ok {
			spans[b.Ticker] = &span{b.Date, b.Date}
			continue
		}
		if b.Date.Before(sp.min) {
			sp.min = b.Date
		}
		if b.Date.After(sp.max) {
			sp.max = b.Date
		}
	}

	// Check for duplicates against existing rows
	for ticker, sp := range spans {
		existing, err := s.GetRange(ctx, ticker, sp.min, sp.max)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, b := range existing {
			if _, dup := seen[key{ticker, b.Date.Format(domain.DateLayout)}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			ticker, date, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Ticker, b.Date.UTC(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves bars for a ticker within [start, end] (inclusive), ordered by date ASC.
func (s *BarStore) GetRange(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND date >= toDate(?) AND date <= toDate(?)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker,
		start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query bars by range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetAll retrieves all bars for a ticker, ordered by date ASC.
func (s *BarStore) GetAll(ctx context.Context, ticker string) ([]domain.Bar, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query bars by ticker: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Tickers returns the distinct tickers held, sorted ASC.
func (s *BarStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT ticker FROM bars ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker row: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticker rows: %w", err)
	}
	return tickers, nil
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]domain.Bar, error) {
	var bars []domain.Bar

	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(
			&b.Ticker, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
