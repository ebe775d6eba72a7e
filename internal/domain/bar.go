package domain

import (
	"errors"
	"fmt"
	"time"
)

// Price series validation errors.
var (
	ErrEmptySeries   = errors.New("price series is empty")
	ErrUnorderedBars = errors.New("price series is not strictly increasing by date")
	ErrMixedTicker   = errors.New("price series contains bars for more than one ticker")
)

// Bar is one trading day of OHLCV data.
// Corresponds to the bars table in ClickHouse.
type Bar struct {
	Ticker string    `json:"ticker"` // asset symbol, e.g. AAPL
	Date   time.Time `json:"date"`   // trading day, UTC midnight
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"` // must be > 0 for well-formed input
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered, time-indexed sequence of bars for one ticker.
// Treated as immutable once produced by a provider.
type PriceSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// NewPriceSeries builds a series from bars, taking the ticker from the first bar.
func NewPriceSeries(bars []Bar) PriceSeries {
	ps := PriceSeries{Bars: bars}
	if len(bars) > 0 {
		ps.Ticker = bars[0].Ticker
	}
	return ps
}

// Len returns the number of bars.
func (p PriceSeries) Len() int {
	return len(p.Bars)
}

// Close returns the closing price at index i.
func (p PriceSeries) Close(i int) float64 {
	return p.Bars[i].Close
}

// Closes returns a copy of the closing prices.
func (p PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns a copy of the bar dates.
func (p PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Date
	}
	return out
}

// Validate checks the structural invariants of the series:
// non-empty, one ticker, strictly increasing dates.
// Price positivity is checked by the engine at the bars it needs.
func (p PriceSeries) Validate() error {
	if len(p.Bars) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(p.Bars); i++ {
		if p.Bars[i].Ticker != p.Bars[0].Ticker {
			return fmt.Errorf("bar %d: %w", i, ErrMixedTicker)
		}
		if !p.Bars[i].Date.After(p.Bars[i-1].Date) {
			return fmt.Errorf("bar %d (%s): %w", i, p.Bars[i].Date.Format(DateLayout), ErrUnorderedBars)
		}
	}
	return nil
}

// DateLayout is the canonical day format used in files, keys and reports.
const DateLayout = "2006-01-02"
