package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// MACrossoverStrategy is long while the short moving average of closes
// is above the long moving average, flat otherwise (including warm-up).
type MACrossoverStrategy struct {
	shortWindow int
	longWindow  int
}

// NewMACrossoverStrategy creates a moving-average crossover strategy.
func NewMACrossoverStrategy(shortWindow, longWindow int) *MACrossoverStrategy {
	return &MACrossoverStrategy{
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}
}

// ID returns strategy identifier with parameters.
func (s *MACrossoverStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%d", domain.StrategyTypeMACrossover, s.shortWindow, s.longWindow)
}

// GenerateSignals implements SignalGenerator.
func (s *MACrossoverStrategy) GenerateSignals(prices domain.PriceSeries) (domain.SignalSeries, error) {
	closes := prices.Closes()
	shortMA := rollingMean(closes, s.shortWindow)
	longMA := rollingMean(closes, s.longWindow)

	signals := make(domain.SignalSeries, len(closes))
	for i := range closes {
		if shortMA[i] > longMA[i] {
			signals[i] = domain.SignalLong
		}
	}
	return signals, nil
}

var _ SignalGenerator = (*MACrossoverStrategy)(nil)
