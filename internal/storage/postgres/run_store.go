package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// A run and its trades are written in one transaction.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, ticker, strategy, strategy_id, start_date, end_date,
	initial_capital, commission_rate, trade_count,
	total_return, sharpe_ratio, max_drawdown, win_rate, num_trades,
	dates, portfolio_values, created_at
`

const tradeColumns = `
	seq, entry_index, entry_date, entry_price, entry_value,
	exit_index, exit_date, exit_price, exit_value, commission, is_open
`

// Insert adds a new run with its trades. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	result := r.Result
	if result == nil {
		result = &domain.SimulationResult{}
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO backtest_runs (`+runColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17
		)
	`,
		r.RunID, r.Ticker, r.Strategy, result.Strategy, r.StartDate, r.EndDate,
		r.InitialCapital, r.CommissionRate, result.TradeCount,
		r.Metrics.TotalReturn, r.Metrics.SharpeRatio, r.Metrics.MaxDrawdown, r.Metrics.WinRate, r.Metrics.NumTrades,
		nonNilDates(result.Dates), nonNilValues(result.PortfolioValues), createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}

	if len(result.Trades) > 0 {
		batch := &pgx.Batch{}
		for i, t := range result.Trades {
			batch.Queue(`
				INSERT INTO backtest_trades (run_id, `+tradeColumns+`) VALUES (
					$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
				)
			`,
				r.RunID, i, t.EntryIndex, t.EntryDate, t.EntryPrice, t.EntryValue,
				t.ExitIndex, t.ExitDate, t.ExitPrice, t.ExitValue, t.Commission, t.Open,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert backtest trades: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = $1`, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}

	trades, err := s.getTrades(ctx, runID)
	if err != nil {
		return nil, err
	}
	r.Result.Trades = trades
	return r, nil
}

// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM backtest_runs
		WHERE ticker = $1
		ORDER BY created_at ASC, run_id ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by ticker: %w", err)
	}

	var runs []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	for _, r := range runs {
		trades, err := s.getTrades(ctx, r.RunID)
		if err != nil {
			return nil, err
		}
		r.Result.Trades = trades
	}
	return runs, nil
}

// getTrades loads the trades of a run in recorded order.
func (s *RunStore) getTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get backtest trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		var (
			t   domain.Trade
			seq int
		)
		err := rows.Scan(
			&seq, &t.EntryIndex, &t.EntryDate, &t.EntryPrice, &t.EntryValue,
			&t.ExitIndex, &t.ExitDate, &t.ExitPrice, &t.ExitValue, &t.Commission, &t.Open,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest trade row: %w", err)
		}
		t.EntryDate = t.EntryDate.UTC()
		t.ExitDate = t.ExitDate.UTC()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest trade rows: %w", err)
	}
	return trades, nil
}

// scanRun scans a single row into a RunRecord without trades.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var (
		r      domain.RunRecord
		result domain.SimulationResult
	)

	err := row.Scan(
		&r.RunID, &r.Ticker, &r.Strategy, &result.Strategy, &r.StartDate, &r.EndDate,
		&r.InitialCapital, &r.CommissionRate, &result.TradeCount,
		&r.Metrics.TotalReturn, &r.Metrics.SharpeRatio, &r.Metrics.MaxDrawdown, &r.Metrics.WinRate, &r.Metrics.NumTrades,
		&result.Dates, &result.PortfolioValues, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.StartDate = r.StartDate.UTC()
	r.EndDate = r.EndDate.UTC()
	for i := range result.Dates {
		result.Dates[i] = result.Dates[i].UTC()
	}
	result.Ticker = r.Ticker
	result.InitialCapital = r.InitialCapital
	result.TotalReturn = r.Metrics.TotalReturn
	r.Result = &result
	return &r, nil
}

func nonNilDates(d []time.Time) []time.Time {
	if d == nil {
		return []time.Time{}
	}
	return d
}

func nonNilValues(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
