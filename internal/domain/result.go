package domain

import "time"

// SimulationResult is the output of one engine run.
// PortfolioValues shares its index with the input PriceSeries.
type SimulationResult struct {
	Strategy        string
	Ticker          string
	Dates           []time.Time
	PortfolioValues []float64
	InitialCapital  float64
	TotalReturn     float64 // PortfolioValues[last] / InitialCapital - 1
	TradeCount      int     // executed buys + sells
	Trades          []Trade // round trips; the last may be Open
}

// FinalValue returns the last portfolio value, or 0 for an empty result.
func (r *SimulationResult) FinalValue() float64 {
	if len(r.PortfolioValues) == 0 {
		return 0
	}
	return r.PortfolioValues[len(r.PortfolioValues)-1]
}

// ClosedTrades returns round trips that have both legs.
func (r *SimulationResult) ClosedTrades() []Trade {
	var out []Trade
	for _, t := range r.Trades {
		if !t.Open {
			out = append(out, t)
		}
	}
	return out
}

// MetricsReport holds annualized statistics derived from a SimulationResult.
type MetricsReport struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	NumTrades   int     `json:"num_trades"`
}
