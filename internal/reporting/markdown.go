package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Strategy Comparison - %s\n\n", r.Ticker))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Ticker | %s |\n", r.Ticker))
	sb.WriteString(fmt.Sprintf("| Period | %s to %s |\n", formatDate(r.StartDate), formatDate(r.EndDate)))
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.Bars))
	sb.WriteString(fmt.Sprintf("| Initial Capital | $%s |\n", money(r.InitialCapital)))
	sb.WriteString(fmt.Sprintf("| Commission | %s%% |\n", percent(r.CommissionRate)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")
		if !r.DataQuality.AllPass {
			sb.WriteString("**Some checks failed.** Treat the results below with caution.\n\n")
		}
	} else {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Comparison
	sb.WriteString("## Results\n\n")
	if len(r.Strategies) == 0 {
		sb.WriteString("No strategy results available.\n\n")
		return sb.String()
	}
	sb.WriteString("| Strategy | Final Value | Total Return | Sharpe | Max Drawdown | Volatility | Win Rate | Trades |\n")
	sb.WriteString("|----------|-------------|--------------|--------|--------------|------------|----------|--------|\n")
	for _, s := range r.Strategies {
		sb.WriteString(fmt.Sprintf("| %s | $%s | %s%% | %.2f | %s%% | %s%% | %s%% | %d |\n",
			s.Name, money(s.FinalValue), percent(s.TotalReturn), s.SharpeRatio,
			percent(s.MaxDrawdown), percent(s.Volatility), percent(s.WinRate), s.NumTrades))
	}
	sb.WriteString("\n")

	if best, ok := bestByReturn(r.Strategies); ok {
		sb.WriteString(fmt.Sprintf("Best total return: **%s** (%s%%)\n\n", best.Name, percent(best.TotalReturn)))
	}

	// Trade detail
	sb.WriteString("## Trades\n\n")
	sb.WriteString("| Strategy | Closed | Median Return | Max Consecutive Losses | Commission Paid |\n")
	sb.WriteString("|----------|--------|---------------|------------------------|-----------------|\n")
	for _, s := range r.Strategies {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s%% | %d | $%s |\n",
			s.Name, s.ClosedTrades, percent(s.MedianTradeReturn), s.MaxConsecutiveLosses, money(s.TotalCommission)))
	}
	sb.WriteString("\n")

	return sb.String()
}

func bestByReturn(rows []StrategyRow) (StrategyRow, bool) {
	if len(rows) == 0 {
		return StrategyRow{}, false
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.TotalReturn > best.TotalReturn {
			best = r
		}
	}
	return best, true
}

// money rounds a currency amount to cents.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// percent renders a fraction as a percentage with two decimals.
func percent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}
