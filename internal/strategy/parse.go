package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"backtest-lab/internal/domain"
)

// ParseStrategy parses a command-line strategy of the form
//
//	[NAME=]TYPE[:PARAM[:PARAM]]
//
// e.g. "MOMENTUM:60", "MA_CROSSOVER:20:50", "Fast=MA_CROSSOVER:10:30".
// TYPE is case-insensitive. Parameters are validated later by FromConfig.
func ParseStrategy(expr string) (domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig

	body := strings.TrimSpace(expr)
	if name, rest, ok := strings.Cut(body, "="); ok {
		cfg.Name = strings.TrimSpace(name)
		body = strings.TrimSpace(rest)
	}

	parts := strings.Split(body, ":")
	cfg.StrategyType = strings.ToUpper(strings.TrimSpace(parts[0]))

	params := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return domain.StrategyConfig{}, fmt.Errorf("%w: %q in %q", ErrInvalidWindow, p, expr)
		}
		params = append(params, n)
	}

	switch cfg.StrategyType {
	case domain.StrategyTypeBuyAndHold:
		if len(params) > 0 {
			return domain.StrategyConfig{}, fmt.Errorf("%w: %s takes no parameters", ErrInvalidWindow, cfg.StrategyType)
		}
	case domain.StrategyTypeMACrossover:
		if len(params) > 2 {
			return domain.StrategyConfig{}, fmt.Errorf("%w: %s takes at most 2 parameters", ErrInvalidWindow, cfg.StrategyType)
		}
		if len(params) > 0 {
			cfg.ShortWindow = params[0]
		}
		if len(params) > 1 {
			cfg.LongWindow = params[1]
		}
	case domain.StrategyTypeMomentum:
		if len(params) > 1 {
			return domain.StrategyConfig{}, fmt.Errorf("%w: %s takes at most 1 parameter", ErrInvalidWindow, cfg.StrategyType)
		}
		if len(params) > 0 {
			cfg.Lookback = params[0]
		}
	default:
		return domain.StrategyConfig{}, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.StrategyType)
	}
	return cfg, nil
}

// ParseStrategies parses every strategy, stopping at the first error.
func ParseStrategies(exprs []string) ([]domain.StrategyConfig, error) {
	configs := make([]domain.StrategyConfig, 0, len(exprs))
	for _, s := range exprs {
		if strings.TrimSpace(s) == "" {
			continue
		}
		cfg, err := ParseStrategy(s)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
