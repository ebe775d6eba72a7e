package strategy

import "backtest-lab/internal/domain"

// BuyAndHold is the passive benchmark: long on every bar.
// backtest.Runner recognises it and uses the engine's commission-free
// fixed-allocation path instead of simulating the signals.
type BuyAndHold struct{}

// NewBuyAndHold creates the buy-and-hold benchmark.
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

// ID returns strategy identifier.
func (s *BuyAndHold) ID() string {
	return domain.StrategyTypeBuyAndHold
}

// GenerateSignals returns LONG for every bar.
func (s *BuyAndHold) GenerateSignals(prices domain.PriceSeries) (domain.SignalSeries, error) {
	signals := make(domain.SignalSeries, prices.Len())
	for i := range signals {
		signals[i] = domain.SignalLong
	}
	return signals, nil
}

var _ SignalGenerator = (*BuyAndHold)(nil)
