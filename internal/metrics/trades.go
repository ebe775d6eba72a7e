package metrics

import "backtest-lab/internal/domain"

// TradeStats summarizes closed round trips.
type TradeStats struct {
	Closed               int
	Wins                 int
	Losses               int
	WinRate              float64
	MeanReturn           float64
	MedianReturn         float64
	BestReturn           float64
	WorstReturn          float64
	ReturnStddev         float64
	MaxConsecutiveLosses int
	AvgHoldBars          float64
	TotalCommission      float64 // includes open trades
}

// SummarizeTrades computes TradeStats in trade order.
// Returns the zero value when no trade is closed.
func SummarizeTrades(trades []domain.Trade) TradeStats {
	var stats TradeStats
	returns := make([]float64, 0, len(trades))
	losses := make([]bool, 0, len(trades))
	holdBars := 0

	for _, t := range trades {
		stats.TotalCommission += t.Commission
		if t.Open {
			continue
		}
		stats.Closed++
		if t.Win() {
			stats.Wins++
		} else {
			stats.Losses++
		}
		returns = append(returns, t.Return())
		losses = append(losses, !t.Win())
		holdBars += t.HoldBars()
	}

	if stats.Closed == 0 {
		return stats
	}

	sorted := sortedCopy(returns)
	stats.WinRate = computeWinRate(stats.Wins, stats.Closed)
	stats.MeanReturn = computeMean(returns)
	stats.MedianReturn = computePercentile(sorted, 0.50)
	stats.BestReturn = sorted[len(sorted)-1]
	stats.WorstReturn = sorted[0]
	stats.ReturnStddev = computeStddev(returns, stats.MeanReturn)
	stats.MaxConsecutiveLosses = computeMaxConsecutive(losses)
	stats.AvgHoldBars = float64(holdBars) / float64(stats.Closed)
	return stats
}
