package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func TestSeriesCache_HitAndMiss(t *testing.T) {
	cache := NewSeriesCache(0)
	ctx := context.Background()

	series := domain.NewPriceSeries([]domain.Bar{bar("SPY", 2, 100), bar("SPY", 3, 101)})

	if _, err := cache.Get(ctx, "SPY", day(1), day(5)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before Set, got %v", err)
	}
	if err := cache.Set(ctx, series, day(1), day(5)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "SPY", day(1), day(5))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Len() != 2 || got.Ticker != "SPY" {
		t.Errorf("Unexpected series: %+v", got)
	}

	// different range is a different key
	if _, err := cache.Get(ctx, "SPY", day(1), day(6)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other range, got %v", err)
	}
}

func TestSeriesCache_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSeriesCache(time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	series := domain.NewPriceSeries([]domain.Bar{bar("SPY", 2, 100)})
	if err := cache.Set(ctx, series, day(1), day(5)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := cache.Get(ctx, "SPY", day(1), day(5)); err != nil {
		t.Errorf("Expected hit before TTL, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(ctx, "SPY", day(1), day(5)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL, got %v", err)
	}
}

func TestSeriesCache_RejectsEmptyTicker(t *testing.T) {
	err := NewSeriesCache(0).Set(context.Background(), domain.PriceSeries{}, day(1), day(2))
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
