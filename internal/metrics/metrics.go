// Package metrics derives summary statistics from simulation results.
// All functions are pure and never modify their input.
package metrics

import (
	"math"

	"backtest-lab/internal/domain"
)

// TradingDaysPerYear is the annualization factor for daily bars.
const TradingDaysPerYear = 252

// Calculate computes the MetricsReport for a simulation result.
//
//   - SharpeRatio = mean(r) / stddev(r) * sqrt(252) over daily returns r, 0 when undefined
//   - MaxDrawdown = min over i of (v[i] - peak[i]) / peak[i]
//   - WinRate = wins / closed round trips, 0 when there are none
//
// TotalReturn and NumTrades are passed through.
func Calculate(result *domain.SimulationResult) domain.MetricsReport {
	if result == nil {
		return domain.MetricsReport{}
	}

	returns := DailyReturns(result.PortfolioValues)

	return domain.MetricsReport{
		TotalReturn: result.TotalReturn,
		SharpeRatio: SharpeRatio(returns),
		MaxDrawdown: computeMaxDrawdown(result.PortfolioValues),
		WinRate:     WinRate(result.Trades),
		NumTrades:   result.TradeCount,
	}
}

// DailyReturns returns the bar-over-bar percentage change of values.
// The first bar has no predecessor and is dropped, so len(out) = len(values)-1.
// Samples with a non-positive base are skipped.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if !(prev > 0) {
			continue
		}
		out = append(out, values[i]/prev-1)
	}
	return out
}

// SharpeRatio annualizes mean/stddev of daily returns with a zero risk-free rate.
// Degenerate inputs (no samples, zero or non-finite stddev) yield 0.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	if stddev == 0 || math.IsNaN(stddev) || math.IsInf(stddev, 0) {
		return 0
	}
	sharpe := mean / stddev * math.Sqrt(TradingDaysPerYear)
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return 0
	}
	return sharpe
}

// MaxDrawdown returns the worst peak-to-trough decline as a fraction of the peak.
func MaxDrawdown(values []float64) float64 {
	return computeMaxDrawdown(values)
}

// DrawdownSeries returns the drawdown at every bar, aligned with values.
func DrawdownSeries(values []float64) []float64 {
	return computeDrawdowns(values)
}

// AnnualizedVolatility is the sample stddev of daily returns scaled by sqrt(252).
func AnnualizedVolatility(values []float64) float64 {
	returns := DailyReturns(values)
	return computeStddev(returns, computeMean(returns)) * math.Sqrt(TradingDaysPerYear)
}

// WinRate is the fraction of closed round trips that ended above their entry value.
// Open trades are not counted.
func WinRate(trades []domain.Trade) float64 {
	wins, closed := 0, 0
	for _, t := range trades {
		if t.Open {
			continue
		}
		closed++
		if t.Win() {
			wins++
		}
	}
	return computeWinRate(wins, closed)
}
