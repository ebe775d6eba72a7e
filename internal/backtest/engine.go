package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/domain"
)

// ErrInvalidInput is returned for caller-supplied data the engine cannot simulate:
// empty series, price/signal length mismatch, non-positive price at a required bar.
var ErrInvalidInput = errors.New("invalid simulation input")

// Engine defaults.
const (
	DefaultInitialCapital = 100000.0
	DefaultCommissionRate = 0.001 // 0.1% of traded cash value
)

// Config is fixed at construction.
type Config struct {
	InitialCapital float64 // > 0
	CommissionRate float64 // in [0, 1)
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital: DefaultInitialCapital,
		CommissionRate: DefaultCommissionRate,
	}
}

// Validate checks configuration bounds.
func (c Config) Validate() error {
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return fmt.Errorf("initial capital must be > 0, got %v", c.InitialCapital)
	}
	if !(c.CommissionRate >= 0 && c.CommissionRate < 1) {
		return fmt.Errorf("commission rate must be in [0, 1), got %v", c.CommissionRate)
	}
	return nil
}

// Step is the engine state after processing one bar.
type Step struct {
	Index  int
	Date   time.Time
	Price  float64
	Signal domain.Signal
	Cash   float64
	Shares float64
	Value  float64 // Cash + Shares*Price
	Traded bool    // a buy or sell executed on this bar
}

// Observer receives every Step in bar order.
type Observer func(Step)

// Engine simulates a single-asset long/flat portfolio over a price series.
// An Engine holds no per-run state and may be shared across goroutines.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// NewEngine creates a new simulation engine.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// WithObserver returns a copy of the engine that reports every bar to fn.
func (e *Engine) WithObserver(fn Observer) *Engine {
	cp := *e
	cp.observer = fn
	return &cp
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// positionState is the mutable cash/shares state of one run.
// At most one of cash and shares is materially non-zero.
type positionState struct {
	cash   float64
	shares float64
}

func (s positionState) long() bool {
	return s.shares > 0
}

func (s positionState) value(price float64) float64 {
	return s.cash + s.shares*price
}

// RunBuyAndHold invests all capital at the first bar and never trades again.
// value[i] = capital * close[i] / close[0], with value[0] = capital exactly.
// No commission is charged on this path.
func (e *Engine) RunBuyAndHold(prices domain.PriceSeries) (*domain.SimulationResult, error) {
	if err := checkSeries(prices); err != nil {
		return nil, err
	}
	first := prices.Close(0)
	if !(first > 0) {
		return nil, fmt.Errorf("%w: non-positive close %v at bar 0", ErrInvalidInput, first)
	}

	n := prices.Len()
	capital := e.cfg.InitialCapital
	values := make([]float64, n)
	values[0] = capital

	shares := capital / first
	e.observe(Step{
		Index: 0, Date: prices.Bars[0].Date, Price: first, Signal: domain.SignalLong,
		Shares: shares, Value: capital, Traded: true,
	})
	for i := 1; i < n; i++ {
		price := prices.Close(i)
		values[i] = capital * (price / first)
		e.observe(Step{
			Index: i, Date: prices.Bars[i].Date, Price: price, Signal: domain.SignalLong,
			Shares: shares, Value: values[i],
		})
	}

	last := n - 1
	trade := domain.Trade{
		EntryIndex: 0,
		EntryDate:  prices.Bars[0].Date,
		EntryPrice: first,
		EntryValue: capital,
		ExitIndex:  last,
		ExitDate:   prices.Bars[last].Date,
		ExitPrice:  prices.Close(last),
		ExitValue:  values[last],
		Open:       true,
	}

	return &domain.SimulationResult{
		Strategy:        domain.StrategyTypeBuyAndHold,
		Ticker:          prices.Ticker,
		Dates:           prices.Dates(),
		PortfolioValues: values,
		InitialCapital:  capital,
		TotalReturn:     values[last]/capital - 1,
		TradeCount:      1,
		Trades:          []domain.Trade{trade},
	}, nil
}

// Run walks the series once, converting LONG/FLAT signals into all-in or all-out trades.
//
// Transitions:
//   - LONG while flat: commission = cash*rate is deducted, the rest buys shares at close
//   - FLAT while long: all shares are sold at close, commission = proceeds*rate is deducted
//   - otherwise state is unchanged
//
// value[i] = cash + shares*close[i] after the transition on bar i.
func (e *Engine) Run(prices domain.PriceSeries, signals domain.SignalSeries) (*domain.SimulationResult, error) {
	if err := checkSeries(prices); err != nil {
		return nil, err
	}
	if len(signals) != prices.Len() {
		return nil, fmt.Errorf("%w: %d signals for %d bars", ErrInvalidInput, len(signals), prices.Len())
	}

	n := prices.Len()
	rate := e.cfg.CommissionRate
	state := positionState{cash: e.cfg.InitialCapital}
	values := make([]float64, n)
	trades := make([]domain.Trade, 0)
	tradeCount := 0
	var open *domain.Trade

	for i := 0; i < n; i++ {
		bar := prices.Bars[i]
		price := bar.Close
		signal := signals[i]
		traded := false

		switch {
		case signal == domain.SignalLong && !state.long():
			if !(price > 0) {
				return nil, fmt.Errorf("%w: non-positive close %v at buy bar %d", ErrInvalidInput, price, i)
			}
			entryValue := state.cash
			commission := entryValue * rate
			state.shares = (entryValue - commission) / price
			state.cash = 0
			tradeCount++
			traded = true
			open = &domain.Trade{
				EntryIndex: i,
				EntryDate:  bar.Date,
				EntryPrice: price,
				EntryValue: entryValue,
				Commission: commission,
			}

		case signal == domain.SignalFlat && state.long():
			if !(price > 0) {
				return nil, fmt.Errorf("%w: non-positive close %v at sell bar %d", ErrInvalidInput, price, i)
			}
			proceeds := state.shares * price
			commission := proceeds * rate
			state.cash = proceeds - commission
			state.shares = 0
			tradeCount++
			traded = true
			open.ExitIndex = i
			open.ExitDate = bar.Date
			open.ExitPrice = price
			open.ExitValue = state.cash
			open.Commission += commission
			trades = append(trades, *open)
			open = nil

		default:
			if state.long() && !(price > 0) {
				return nil, fmt.Errorf("%w: non-positive close %v at held bar %d", ErrInvalidInput, price, i)
			}
		}

		values[i] = state.value(price)
		e.observe(Step{
			Index: i, Date: bar.Date, Price: price, Signal: signal,
			Cash: state.cash, Shares: state.shares, Value: values[i], Traded: traded,
		})
	}

	last := n - 1
	if open != nil {
		open.ExitIndex = last
		open.ExitDate = prices.Bars[last].Date
		open.ExitPrice = prices.Close(last)
		open.ExitValue = values[last]
		open.Open = true
		trades = append(trades, *open)
	}

	e.logger.Debug("simulation complete",
		zap.String("ticker", prices.Ticker),
		zap.Int("bars", n),
		zap.Int("trades", tradeCount),
		zap.Float64("final_value", values[last]),
	)

	return &domain.SimulationResult{
		Ticker:          prices.Ticker,
		Dates:           prices.Dates(),
		PortfolioValues: values,
		InitialCapital:  e.cfg.InitialCapital,
		TotalReturn:     values[last]/e.cfg.InitialCapital - 1,
		TradeCount:      tradeCount,
		Trades:          trades,
	}, nil
}

func (e *Engine) observe(s Step) {
	if e.observer != nil {
		e.observer(s)
	}
}

// checkSeries rejects empty and structurally invalid series.
func checkSeries(prices domain.PriceSeries) error {
	if err := prices.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
