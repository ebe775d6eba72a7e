package backtest

import (
	"context"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/strategy"
)

// Runner executes a strategy against a price series with an engine.
type Runner struct {
	engine *Engine
}

// NewRunner creates a new backtest runner.
func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine: engine,
	}
}

// Engine returns the runner's engine.
func (r *Runner) Engine() *Engine {
	return r.engine
}

// Run produces signals from the strategy and simulates them.
// Buy-and-hold is dispatched to the engine's fixed-policy path.
// The result is labelled with the strategy ID.
func (r *Runner) Run(ctx context.Context, prices domain.PriceSeries, gen strategy.SignalGenerator) (*domain.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		result *domain.SimulationResult
		err    error
	)

	if _, ok := gen.(*strategy.BuyAndHold); ok {
		result, err = r.engine.RunBuyAndHold(prices)
	} else {
		var signals domain.SignalSeries
		signals, err = gen.GenerateSignals(prices)
		if err != nil {
			return nil, fmt.Errorf("generate signals for %s: %w", gen.ID(), err)
		}
		result, err = r.engine.Run(prices, signals)
	}
	if err != nil {
		return nil, err
	}

	result.Strategy = gen.ID()
	return result, nil
}
