// Package main serves backtests over HTTP:
// - REST: run comparisons, fetch stored runs
// - WebSocket: stream per-bar portfolio values of a run
// - Ops: /health, /status, /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"backtest-lab/internal/api"
	"backtest-lab/internal/app"
	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	addr := flag.String("addr", "", "Listen address (default from config)")
	dataDir := flag.String("data-dir", "", "Directory of <TICKER>.csv files")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for the bar store")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for run history")
	redisURL := flag.String("redis-url", "", "Redis URL for the series cache")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "data-dir":
			cfg.Data.Dir = *dataDir
		case "clickhouse-dsn":
			cfg.Data.ClickHouseDSN = *clickhouseDSN
		case "postgres-dsn":
			cfg.Data.PostgresDSN = *postgresDSN
		case "redis-url":
			cfg.Data.RedisURL = *redisURL
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.Open(ctx, cfg, logger, observability.DefaultMetrics)
	if err != nil {
		return err
	}
	defer backend.Close()

	server := api.NewServer(api.Options{
		Provider: backend.Loader,
		RunStore: backend.Runs,
		Engine: backtest.Config{
			InitialCapital: cfg.Engine.InitialCapital,
			CommissionRate: cfg.Engine.CommissionRate,
		},
		Concurrency: cfg.Backtest.Concurrency,
		Logger:      logger.Named("api"),
		Metrics:     observability.DefaultMetrics,
		Timeout:     cfg.Server.WriteTimeout,
	})

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     server.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero so websocket streams are not cut off;
		// REST routes are bounded by the router's timeout middleware.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
