package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[barKey]domain.Bar
}

// barKey identifies a bar by (ticker, day).
type barKey struct {
	ticker string
	day    string
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[barKey]domain.Bar),
	}
}

func keyOf(b domain.Bar) barKey {
	return barKey{ticker: b.Ticker, day: b.Date.UTC().Format(domain.DateLayout)}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[barKey]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b.Ticker == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := keyOf(b)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		s.data[keyOf(b)] = b
	}

	return nil
}

// GetRange retrieves bars for a ticker within [start, end] (inclusive), ordered by date ASC.
func (s *BarStore) GetRange(_ context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Bar
	for _, b := range s.data {
		if b.Ticker == ticker && !b.Date.Before(start) && !b.Date.After(end) {
			result = append(result, b)
		}
	}
	sortBars(result)
	return result, nil
}

// GetAll retrieves all bars for a ticker, ordered by date ASC.
func (s *BarStore) GetAll(_ context.Context, ticker string) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Bar
	for _, b := range s.data {
		if b.Ticker == ticker {
			result = append(result, b)
		}
	}
	sortBars(result)
	return result, nil
}

// Tickers returns the distinct tickers held, sorted ASC.
func (s *BarStore) Tickers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.data {
		seen[k.ticker] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func sortBars(bars []domain.Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

var _ storage.BarStore = (*BarStore)(nil)
