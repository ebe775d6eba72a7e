package strategy

import (
	"backtest-lab/internal/domain"
)

// SignalGenerator produces a LONG/FLAT signal per bar from a price series.
// Implementations must return exactly prices.Len() signals and must not
// mutate the input.
type SignalGenerator interface {
	// GenerateSignals returns signals aligned by index with prices.
	GenerateSignals(prices domain.PriceSeries) (domain.SignalSeries, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}
