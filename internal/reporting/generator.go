package reporting

import (
	"sort"
	"time"

	"backtest-lab/internal/compare"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
)

// Generator builds comparison reports from run outcomes.
type Generator struct {
	initialCapital float64
	commissionRate float64
	requiredBars   int
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator for runs made with the given engine settings.
func NewGenerator(initialCapital, commissionRate float64) *Generator {
	return &Generator{
		initialCapital: initialCapital,
		commissionRate: commissionRate,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRequiredBars sets the warm-up the data quality check demands.
func (g *Generator) WithRequiredBars(n int) *Generator {
	g.requiredBars = n
	return g
}

// Generate produces a report for prices. Rows follow order; outcomes missing from
// order are appended by name.
func (g *Generator) Generate(prices domain.PriceSeries, outcomes map[string]*compare.Outcome, order []string) *Report {
	r := &Report{
		GeneratedAt:    g.now(),
		Ticker:         prices.Ticker,
		Bars:           prices.Len(),
		InitialCapital: g.initialCapital,
		CommissionRate: g.commissionRate,
	}
	if n := prices.Len(); n > 0 {
		r.StartDate = prices.Bars[0].Date
		r.EndDate = prices.Bars[n-1].Date
	}

	r.DataQuality = CheckDataQuality(prices, g.requiredBars)

	names := orderedNames(outcomes, order)
	r.Strategies = make([]StrategyRow, 0, len(names))
	for _, name := range names {
		r.Strategies = append(r.Strategies, buildRow(name, outcomes[name]))
	}
	r.Equity = buildEquity(prices.Dates(), names, outcomes)
	return r
}

func orderedNames(outcomes map[string]*compare.Outcome, order []string) []string {
	names := make([]string, 0, len(outcomes))
	seen := make(map[string]struct{}, len(outcomes))
	for _, name := range order {
		if _, ok := outcomes[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	var rest []string
	for name := range outcomes {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func buildRow(name string, out *compare.Outcome) StrategyRow {
	row := StrategyRow{
		Name:                 name,
		RunID:                out.RunID,
		TotalReturn:          out.Metrics.TotalReturn,
		SharpeRatio:          out.Metrics.SharpeRatio,
		MaxDrawdown:          out.Metrics.MaxDrawdown,
		WinRate:              out.Metrics.WinRate,
		NumTrades:            out.Metrics.NumTrades,
		ClosedTrades:         out.Trades.Closed,
		MedianTradeReturn:    out.Trades.MedianReturn,
		MaxConsecutiveLosses: out.Trades.MaxConsecutiveLosses,
		TotalCommission:      out.Trades.TotalCommission,
	}
	if out.Result != nil {
		row.StrategyID = out.Result.Strategy
		row.FinalValue = out.Result.FinalValue()
		row.Volatility = metrics.AnnualizedVolatility(out.Result.PortfolioValues)
	}
	return row
}

// buildEquity aligns every strategy's values on the price dates.
// Cells past a strategy's result length stay zero.
func buildEquity(dates []time.Time, names []string, outcomes map[string]*compare.Outcome) EquityTable {
	t := EquityTable{
		Columns: names,
		Dates:   dates,
		Values:  make([][]float64, len(dates)),
	}
	for i := range dates {
		row := make([]float64, len(names))
		for j, name := range names {
			out := outcomes[name]
			if out == nil || out.Result == nil || i >= len(out.Result.PortfolioValues) {
				continue
			}
			row[j] = out.Result.PortfolioValues[i]
		}
		t.Values[i] = row
	}
	return t
}
