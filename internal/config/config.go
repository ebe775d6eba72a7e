// Package config loads runtime settings from defaults, an optional YAML file
// and BACKTEST_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. BACKTEST_ENGINE_INITIAL_CAPITAL.
const EnvPrefix = "BACKTEST"

// Config is the full runtime configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Data     DataConfig     `mapstructure:"data"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// EngineConfig configures the simulation engine.
type EngineConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
}

// BacktestConfig selects what to simulate.
type BacktestConfig struct {
	Ticker      string   `mapstructure:"ticker"`
	Start       string   `mapstructure:"start"` // YYYY-MM-DD
	End         string   `mapstructure:"end"`   // YYYY-MM-DD
	Strategies  []string `mapstructure:"strategies"`
	Concurrency int      `mapstructure:"concurrency"`
	OutputDir   string   `mapstructure:"output_dir"`
}

// DataConfig locates market data and persistence backends. Empty DSNs use memory stores.
type DataConfig struct {
	Dir           string        `mapstructure:"dir"`
	URLTemplate   string        `mapstructure:"url_template"`
	ClickHouseDSN string        `mapstructure:"clickhouse_dsn"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	RedisURL      string        `mapstructure:"redis_url"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.initial_capital", 100000.0)
	v.SetDefault("engine.commission_rate", 0.001)

	v.SetDefault("backtest.ticker", "AAPL")
	v.SetDefault("backtest.start", "2020-01-01")
	v.SetDefault("backtest.end", "2024-12-31")
	v.SetDefault("backtest.strategies", []string{"BUY_AND_HOLD", "MA_CROSSOVER", "MOMENTUM"})
	v.SetDefault("backtest.concurrency", 4)
	v.SetDefault("backtest.output_dir", "results")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.url_template", "")
	v.SetDefault("data.clickhouse_dsn", "")
	v.SetDefault("data.postgres_dsn", "")
	v.SetDefault("data.redis_url", "")
	v.SetDefault("data.cache_ttl", 24*time.Hour)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}

// Default returns the configuration with no file or environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. path may be empty to skip the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error
	if !(c.Engine.InitialCapital > 0) {
		errs = append(errs, fmt.Errorf("engine.initial_capital must be > 0, got %v", c.Engine.InitialCapital))
	}
	if c.Engine.CommissionRate < 0 || c.Engine.CommissionRate >= 1 {
		errs = append(errs, fmt.Errorf("engine.commission_rate must be in [0, 1), got %v", c.Engine.CommissionRate))
	}
	if _, _, err := c.Backtest.DateRange(); err != nil {
		errs = append(errs, err)
	}
	if c.Backtest.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("backtest.concurrency must be >= 1, got %d", c.Backtest.Concurrency))
	}
	return errors.Join(errs...)
}

// DateRange parses Start and End.
func (b BacktestConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", b.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start: %w", err)
	}
	end, err := time.Parse("2006-01-02", b.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end %s before start %s", b.End, b.Start)
	}
	return start, end, nil
}
