package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"backtest-lab/internal/domain"
)

var summaryHeader = []string{
	"strategy", "strategy_id", "run_id", "final_value", "total_return", "sharpe_ratio",
	"max_drawdown", "annualized_volatility", "win_rate", "num_trades", "closed_trades",
	"median_trade_return", "max_consecutive_losses", "total_commission",
}

// RenderCSV renders strategy rows as CSV string.
func RenderCSV(rows []StrategyRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	_ = w.Write(summaryHeader)

	// Rows
	for _, r := range rows {
		_ = w.Write([]string{
			r.Name,
			r.StrategyID,
			r.RunID,
			money(r.FinalValue),
			ratio(r.TotalReturn),
			ratio(r.SharpeRatio),
			ratio(r.MaxDrawdown),
			ratio(r.Volatility),
			ratio(r.WinRate),
			strconv.Itoa(r.NumTrades),
			strconv.Itoa(r.ClosedTrades),
			ratio(r.MedianTradeReturn),
			strconv.Itoa(r.MaxConsecutiveLosses),
			money(r.TotalCommission),
		})
	}

	w.Flush()
	return sb.String()
}

// RenderEquityCSV renders the equity table with one date column and one column per strategy.
func RenderEquityCSV(t EquityTable) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write(append([]string{"date"}, t.Columns...))
	for i, d := range t.Dates {
		record := make([]string, 0, len(t.Columns)+1)
		record = append(record, d.Format(domain.DateLayout))
		for _, v := range t.Values[i] {
			record = append(record, money(v))
		}
		_ = w.Write(record)
	}

	w.Flush()
	return sb.String()
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
