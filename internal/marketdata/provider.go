// Package marketdata loads daily price series for the engine.
package marketdata

import (
	"context"
	"errors"
	"time"

	"backtest-lab/internal/domain"
)

// ErrNoData is returned when no bars exist for a ticker in the requested range.
var ErrNoData = errors.New("no price data")

// Provider returns a date-ordered price series for ticker within [start, end].
type Provider interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	return f(ctx, ticker, start, end)
}

// inRange reports whether d falls within [start, end] by calendar day.
func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
