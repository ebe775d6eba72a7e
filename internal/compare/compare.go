// Package compare runs several strategies over one price series in parallel.
// Each run owns its engine state; results are keyed by strategy display name.
package compare

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/strategy"
)

// ErrInvalidConfig is returned when the strategy set cannot be compared.
var ErrInvalidConfig = errors.New("invalid comparison config")

// DefaultConcurrency bounds parallel strategy runs when Options.Concurrency is zero.
const DefaultConcurrency = 4

// Outcome is one strategy's simulation and its statistics.
type Outcome struct {
	RunID    string
	Name     string
	Config   domain.StrategyConfig
	Result   *domain.SimulationResult
	Metrics  domain.MetricsReport
	Trades   metrics.TradeStats
	Duration time.Duration
}

// Options for creating Runner.
type Options struct {
	Engine      backtest.Config
	Concurrency int
	RunStore    storage.RunStore // optional
	Logger      *zap.Logger
	Metrics     *observability.Metrics

	// Observer, when set, receives every engine step tagged with the strategy name.
	Observer func(name string, step backtest.Step)
}

// Runner compares strategies over a shared, read-only price series.
type Runner struct {
	engineCfg   backtest.Config
	concurrency int
	runStore    storage.RunStore
	logger      *zap.Logger
	metrics     *observability.Metrics
	observer    func(string, backtest.Step)
	now         func() time.Time
}

// New creates a Runner. The engine configuration is validated up front.
func New(opts Options) (*Runner, error) {
	if err := opts.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	r := &Runner{
		engineCfg:   opts.Engine,
		concurrency: opts.Concurrency,
		runStore:    opts.RunStore,
		logger:      logging.OrNop(opts.Logger),
		metrics:     opts.Metrics,
		observer:    opts.Observer,
		now:         time.Now,
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics
	}
	return r, nil
}

// WithClock sets a custom clock for CreatedAt timestamps (for testing).
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run simulates every config against prices and returns outcomes keyed by display name.
// Config errors are reported before any simulation starts. The first failing run cancels
// the others.
func (r *Runner) Run(ctx context.Context, prices domain.PriceSeries, configs []domain.StrategyConfig) (map[string]*Outcome, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no strategies to compare", ErrInvalidConfig)
	}

	type job struct {
		name string
		cfg  domain.StrategyConfig
		gen  strategy.SignalGenerator
	}
	jobs := make([]job, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		gen, err := strategy.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		name := strategy.DisplayName(cfg, gen)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate strategy name %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
		jobs = append(jobs, job{name: name, cfg: cfg, gen: gen})
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[string]*Outcome, len(jobs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			out, err := r.runOne(gctx, prices, j.name, j.cfg, j.gen)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", j.name, err)
			}
			mu.Lock()
			outcomes[j.name] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, prices domain.PriceSeries, name string, cfg domain.StrategyConfig, gen strategy.SignalGenerator) (*Outcome, error) {
	log := r.logger.With(zap.String("strategy", name), zap.String("ticker", prices.Ticker))

	engine, err := backtest.NewEngine(r.engineCfg, log)
	if err != nil {
		return nil, err
	}
	if r.observer != nil {
		engine = engine.WithObserver(func(s backtest.Step) { r.observer(name, s) })
	}

	began := time.Now()
	result, err := backtest.NewRunner(engine).Run(ctx, prices, gen)
	took := time.Since(began)
	if err != nil {
		r.metrics.RecordRun(prices.Ticker, name, prices.Len(), 0, 0, took, err)
		return nil, err
	}

	out := &Outcome{
		RunID:    uuid.NewString(),
		Name:     name,
		Config:   cfg,
		Result:   result,
		Metrics:  metrics.Calculate(result),
		Trades:   metrics.SummarizeTrades(result.Trades),
		Duration: took,
	}
	r.metrics.RecordRun(prices.Ticker, name, prices.Len(), result.TradeCount, result.TotalReturn, took, nil)

	if r.runStore != nil {
		if err := r.runStore.Insert(ctx, r.record(prices, out)); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}

	log.Debug("strategy run complete",
		zap.String("run_id", out.RunID),
		zap.Float64("total_return", out.Metrics.TotalReturn),
		zap.Float64("sharpe", out.Metrics.SharpeRatio),
		zap.Int("trades", out.Metrics.NumTrades),
		zap.Duration("took", took))
	return out, nil
}

func (r *Runner) record(prices domain.PriceSeries, out *Outcome) *domain.RunRecord {
	rec := &domain.RunRecord{
		RunID:          out.RunID,
		Ticker:         prices.Ticker,
		Strategy:       out.Name,
		InitialCapital: r.engineCfg.InitialCapital,
		CommissionRate: r.engineCfg.CommissionRate,
		Result:         out.Result,
		Metrics:        out.Metrics,
		CreatedAt:      r.now().UTC(),
	}
	if n := prices.Len(); n > 0 {
		rec.StartDate = prices.Bars[0].Date
		rec.EndDate = prices.Bars[n-1].Date
	}
	return rec
}

// Names returns outcome names in a stable order: configs order when given, else sorted.
func Names(outcomes map[string]*Outcome, configs []domain.StrategyConfig) []string {
	names := make([]string, 0, len(outcomes))
	used := make(map[string]struct{}, len(outcomes))
	for _, cfg := range configs {
		gen, err := strategy.FromConfig(cfg)
		if err != nil {
			continue
		}
		name := strategy.DisplayName(cfg, gen)
		if _, ok := outcomes[name]; ok {
			if _, dup := used[name]; !dup {
				names = append(names, name)
				used[name] = struct{}{}
			}
		}
	}
	var rest []string
	for name := range outcomes {
		if _, ok := used[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
