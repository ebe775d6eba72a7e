package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// MomentumStrategy is long while the return over the lookback window is positive.
type MomentumStrategy struct {
	lookback int
}

// NewMomentumStrategy creates a momentum strategy.
func NewMomentumStrategy(lookback int) *MomentumStrategy {
	return &MomentumStrategy{lookback: lookback}
}

// ID returns strategy identifier with parameters.
func (s *MomentumStrategy) ID() string {
	return fmt.Sprintf("%s_%d", domain.StrategyTypeMomentum, s.lookback)
}

// GenerateSignals implements SignalGenerator.
func (s *MomentumStrategy) GenerateSignals(prices domain.PriceSeries) (domain.SignalSeries, error) {
	returns := pctChange(prices.Closes(), s.lookback)

	signals := make(domain.SignalSeries, len(returns))
	for i, r := range returns {
		if r > 0 {
			signals[i] = domain.SignalLong
		}
	}
	return signals, nil
}

var _ SignalGenerator = (*MomentumStrategy)(nil)
