package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"backtest-lab/internal/app"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/compare"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/strategy"
)

func main() {
	// Config file
	configPath := flag.String("config", "", "Path to YAML config file (optional)")

	// Run selection
	ticker := flag.String("ticker", "", "Ticker symbol (default from config)")
	start := flag.String("start", "", "Start date YYYY-MM-DD")
	end := flag.String("end", "", "End date YYYY-MM-DD")
	strategies := flag.String("strategies", "", "Comma-separated strategies, e.g. BUY_AND_HOLD,MA_CROSSOVER:50:200,MOMENTUM:120")
	concurrency := flag.Int("concurrency", 0, "Parallel strategy runs")

	// Engine
	capital := flag.Float64("capital", 0, "Initial capital")
	commission := flag.Float64("commission", -1, "Commission rate per trade, e.g. 0.001")

	// Data
	dataDir := flag.String("data-dir", "", "Directory of <TICKER>.csv files")
	urlTemplate := flag.String("url-template", "", "HTTP CSV source with {ticker} placeholder")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for the bar store")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for run history")
	redisURL := flag.String("redis-url", "", "Redis URL for the series cache")

	// Output
	outputDir := flag.String("output-dir", "", "Directory for reports")
	outputJSON := flag.Bool("json", false, "Print JSON report to stdout instead of a table")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ticker":
			cfg.Backtest.Ticker = strings.ToUpper(*ticker)
		case "start":
			cfg.Backtest.Start = *start
		case "end":
			cfg.Backtest.End = *end
		case "strategies":
			cfg.Backtest.Strategies = strings.Split(*strategies, ",")
		case "concurrency":
			cfg.Backtest.Concurrency = *concurrency
		case "capital":
			cfg.Engine.InitialCapital = *capital
		case "commission":
			cfg.Engine.CommissionRate = *commission
		case "data-dir":
			cfg.Data.Dir = *dataDir
		case "url-template":
			cfg.Data.URLTemplate = *urlTemplate
		case "clickhouse-dsn":
			cfg.Data.ClickHouseDSN = *clickhouseDSN
		case "postgres-dsn":
			cfg.Data.PostgresDSN = *postgresDSN
		case "redis-url":
			cfg.Data.RedisURL = *redisURL
		case "output-dir":
			cfg.Backtest.OutputDir = *outputDir
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, cfg, logger, *outputJSON); err != nil {
		logger.Error("backtest failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, outputJSON bool) error {
	configs, err := strategy.ParseStrategies(cfg.Backtest.Strategies)
	if err != nil {
		return err
	}
	startDate, endDate, err := cfg.Backtest.DateRange()
	if err != nil {
		return err
	}

	backend, err := app.Open(ctx, cfg, logger, observability.DefaultMetrics)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger.Info("loading prices",
		zap.String("ticker", cfg.Backtest.Ticker),
		zap.String("start", cfg.Backtest.Start),
		zap.String("end", cfg.Backtest.End))
	prices, err := backend.Loader.Fetch(ctx, cfg.Backtest.Ticker, startDate, endDate)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	logger.Info("prices loaded", zap.Int("bars", prices.Len()))

	runner, err := compare.New(compare.Options{
		Engine: backtest.Config{
			InitialCapital: cfg.Engine.InitialCapital,
			CommissionRate: cfg.Engine.CommissionRate,
		},
		Concurrency: cfg.Backtest.Concurrency,
		RunStore:    backend.Runs,
		Logger:      logger.Named("compare"),
	})
	if err != nil {
		return err
	}

	outcomes, err := runner.Run(ctx, prices, configs)
	if err != nil {
		return err
	}

	order := compare.Names(outcomes, configs)
	report := reporting.NewGenerator(cfg.Engine.InitialCapital, cfg.Engine.CommissionRate).
		WithRequiredBars(strategy.RequiredBars(configs)).
		Generate(prices, outcomes, order)
	if !report.DataQuality.AllPass {
		for _, c := range report.DataQuality.Checks {
			if !c.Pass {
				logger.Warn("data quality check failed",
					zap.String("check", c.Name), zap.String("threshold", c.Threshold), zap.String("actual", c.Actual))
			}
		}
	}

	if outputJSON {
		data, err := reporting.RenderJSON(report)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printSummary(report)
	}

	if cfg.Backtest.OutputDir != "" {
		paths, err := reporting.WriteFiles(cfg.Backtest.OutputDir, report)
		if err != nil {
			return err
		}
		logger.Info("reports written", zap.Strings("files", paths))
	}
	return nil
}

func printSummary(r *reporting.Report) {
	fmt.Printf("\n%s  %s to %s  (%d bars)\n\n", r.Ticker,
		r.StartDate.Format(domain.DateLayout), r.EndDate.Format(domain.DateLayout), r.Bars)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Strategy\tFinal Value\tTotal Return\tSharpe\tMax DD\tWin Rate\tTrades\t")
	for _, s := range r.Strategies {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f%%\t%.2f\t%.2f%%\t%.2f%%\t%d\t\n",
			s.Name, s.FinalValue, s.TotalReturn*100, s.SharpeRatio,
			s.MaxDrawdown*100, s.WinRate*100, s.NumTrades)
	}
	w.Flush()
	fmt.Println()
}
