package domain

import "time"

// RunRecord is a persisted backtest run.
// Corresponds to backtest_runs and backtest_trades tables in PostgreSQL.
type RunRecord struct {
	RunID          string
	Ticker         string
	Strategy       string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	CommissionRate float64
	Result         *SimulationResult
	Metrics        MetricsReport
	CreatedAt      time.Time
}
