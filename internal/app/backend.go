// Package app wires configured storage tiers and market data sources for the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/marketdata"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	"backtest-lab/internal/storage/postgres"
	"backtest-lab/internal/storage/redis"
)

// Backend holds the data sources shared by a process.
type Backend struct {
	Loader *marketdata.Loader
	Bars   storage.BarStore
	Cache  storage.SeriesCache
	Runs   storage.RunStore

	closers []func()
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Open builds every tier from cfg. Empty DSNs fall back to in-memory stores.
// Callers must Close the backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *observability.Metrics) (*Backend, error) {
	logger = logging.OrNop(logger)
	if m == nil {
		m = observability.DefaultMetrics
	}
	b := &Backend{logger: logger, metrics: m}

	fetcher, err := newFetcher(cfg.Data)
	if err != nil {
		return nil, err
	}

	if err := b.openBars(ctx, cfg.Data); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openCache(ctx, cfg.Data); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openRuns(ctx, cfg.Data); err != nil {
		b.Close()
		return nil, err
	}

	b.Loader = marketdata.NewLoader(fetcher,
		marketdata.WithStore(b.Bars),
		marketdata.WithCache(b.Cache),
		marketdata.WithLogger(logger.Named("marketdata")),
		marketdata.WithMetrics(m),
	)
	return b, nil
}

func newFetcher(cfg config.DataConfig) (marketdata.Provider, error) {
	if cfg.URLTemplate != "" {
		f, err := marketdata.NewHTTPFetcher(cfg.URLTemplate)
		if err != nil {
			return nil, fmt.Errorf("http fetcher: %w", err)
		}
		return f, nil
	}
	return marketdata.NewCSVFetcher(cfg.Dir), nil
}

func (b *Backend) openBars(ctx context.Context, cfg config.DataConfig) error {
	if cfg.ClickHouseDSN == "" {
		b.Bars = memory.NewBarStore()
		return nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	b.closers = append(b.closers, func() { conn.Close() })
	b.Bars = &instrumentedBarStore{next: clickhouse.NewBarStore(conn), database: "clickhouse", metrics: b.metrics}
	b.logger.Info("bar store: clickhouse")
	return nil
}

func (b *Backend) openCache(ctx context.Context, cfg config.DataConfig) error {
	if cfg.RedisURL == "" {
		b.Cache = memory.NewSeriesCache(cfg.CacheTTL)
		return nil
	}
	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	b.closers = append(b.closers, func() { rdb.Close() })
	b.Cache = redis.NewSeriesCache(rdb, cfg.CacheTTL)
	b.logger.Info("series cache: redis", zap.Duration("ttl", cfg.CacheTTL))
	return nil
}

func (b *Backend) openRuns(ctx context.Context, cfg config.DataConfig) error {
	if cfg.PostgresDSN == "" {
		b.Runs = memory.NewRunStore()
		return nil
	}
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	b.closers = append(b.closers, pool.Close)
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	b.Runs = &instrumentedRunStore{next: postgres.NewRunStore(pool), database: "postgres", metrics: b.metrics}
	b.logger.Info("run store: postgres", zap.Strings("migrations", applied))
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
