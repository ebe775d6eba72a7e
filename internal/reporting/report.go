package reporting

import "time"

// Report is a strategy comparison over one ticker and date range.
type Report struct {
	// Metadata
	GeneratedAt    time.Time `json:"generated_at"`
	Ticker         string    `json:"ticker"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Bars           int       `json:"bars"`
	InitialCapital float64   `json:"initial_capital"`
	CommissionRate float64   `json:"commission_rate"`

	// Data Quality (sufficiency checks on the simulated series)
	DataQuality DataQuality `json:"data_quality"`

	// Strategy rows in display order
	Strategies []StrategyRow `json:"strategies"`

	// Equity curves, one column per strategy in Strategies order
	Equity EquityTable `json:"equity"`
}

// StrategyRow represents one row in the comparison table.
type StrategyRow struct {
	Name                 string  `json:"name"`
	StrategyID           string  `json:"strategy_id"`
	RunID                string  `json:"run_id,omitempty"`
	FinalValue           float64 `json:"final_value"`
	TotalReturn          float64 `json:"total_return"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Volatility           float64 `json:"annualized_volatility"`
	WinRate              float64 `json:"win_rate"`
	NumTrades            int     `json:"num_trades"`
	ClosedTrades         int     `json:"closed_trades"`
	MedianTradeReturn    float64 `json:"median_trade_return"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	TotalCommission      float64 `json:"total_commission"`
}

// EquityTable is a date by strategy matrix of portfolio values.
type EquityTable struct {
	Columns []string    `json:"columns"`
	Dates   []time.Time `json:"dates"`
	Values  [][]float64 `json:"values"` // Values[row][column]
}
