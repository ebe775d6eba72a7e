package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

var historyHeader = []string{
	"run_id", "created_at", "strategy", "strategy_id", "start", "end", "initial_capital",
	"commission_rate", "final_value", "total_return", "sharpe_ratio", "max_drawdown", "win_rate", "num_trades",
}

// RenderHistoryCSV renders stored runs, one row per run, in the given order.
func RenderHistoryCSV(runs []*domain.RunRecord) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write(historyHeader)
	for _, r := range runs {
		_ = w.Write([]string{
			r.RunID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Strategy,
			strategyID(r),
			formatDate(r.StartDate),
			formatDate(r.EndDate),
			money(r.InitialCapital),
			ratio(r.CommissionRate),
			money(finalValue(r)),
			ratio(r.Metrics.TotalReturn),
			ratio(r.Metrics.SharpeRatio),
			ratio(r.Metrics.MaxDrawdown),
			ratio(r.Metrics.WinRate),
			strconv.Itoa(r.Metrics.NumTrades),
		})
	}

	w.Flush()
	return sb.String()
}

// RenderHistoryMarkdown renders stored runs for ticker as a Markdown table.
func RenderHistoryMarkdown(ticker string, runs []*domain.RunRecord, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Run History - %s\n\n", ticker))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))

	if len(runs) == 0 {
		sb.WriteString("No stored runs.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", len(runs)))
	sb.WriteString("| Created | Strategy | Period | Final Value | Total Return | Sharpe | Max Drawdown | Trades | Run |\n")
	sb.WriteString("|---------|----------|--------|-------------|--------------|--------|--------------|--------|-----|\n")
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s to %s | $%s | %s%% | %.2f | %s%% | %d | %s |\n",
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Strategy,
			formatDate(r.StartDate), formatDate(r.EndDate),
			money(finalValue(r)),
			percent(r.Metrics.TotalReturn),
			r.Metrics.SharpeRatio,
			percent(r.Metrics.MaxDrawdown),
			r.Metrics.NumTrades,
			r.RunID))
	}
	sb.WriteString("\n")
	return sb.String()
}

func strategyID(r *domain.RunRecord) string {
	if r.Result == nil {
		return ""
	}
	return r.Result.Strategy
}

// finalValue falls back to capital * (1 + total return) when the series was not loaded.
func finalValue(r *domain.RunRecord) float64 {
	if r.Result != nil && len(r.Result.PortfolioValues) > 0 {
		return r.Result.FinalValue()
	}
	return r.InitialCapital * (1 + r.Metrics.TotalReturn)
}
