package strategy

import (
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrInvalidWindow       = errors.New("invalid window")
)

// FromConfig creates a SignalGenerator from domain.StrategyConfig.
// Zero parameters take their defaults; negative or inconsistent ones are rejected.
func FromConfig(cfg domain.StrategyConfig) (SignalGenerator, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeBuyAndHold:
		return NewBuyAndHold(), nil
	case domain.StrategyTypeMACrossover:
		return fromMACrossoverConfig(cfg)
	case domain.StrategyTypeMomentum:
		return fromMomentumConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.StrategyType)
	}
}

// fromMACrossoverConfig creates MACrossoverStrategy from config.
func fromMACrossoverConfig(cfg domain.StrategyConfig) (*MACrossoverStrategy, error) {
	short := cfg.ShortWindow
	if short == 0 {
		short = domain.DefaultShortWindow
	}
	long := cfg.LongWindow
	if long == 0 {
		long = domain.DefaultLongWindow
	}
	if short < 1 || long < 1 {
		return nil, fmt.Errorf("%w: MA_CROSSOVER windows must be positive (short=%d long=%d)", ErrInvalidWindow, short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("%w: MA_CROSSOVER short window %d must be below long window %d", ErrInvalidWindow, short, long)
	}
	return NewMACrossoverStrategy(short, long), nil
}

// fromMomentumConfig creates MomentumStrategy from config.
func fromMomentumConfig(cfg domain.StrategyConfig) (*MomentumStrategy, error) {
	lookback := cfg.Lookback
	if lookback == 0 {
		lookback = domain.DefaultLookback
	}
	if lookback < 1 {
		return nil, fmt.Errorf("%w: MOMENTUM lookback must be positive, got %d", ErrInvalidWindow, lookback)
	}
	return NewMomentumStrategy(lookback), nil
}

// DefaultConfigs returns the strategy set compared by default:
// the buy-and-hold benchmark, a 50/200 crossover and 120-day momentum.
func DefaultConfigs() []domain.StrategyConfig {
	return []domain.StrategyConfig{
		{StrategyType: domain.StrategyTypeBuyAndHold, Name: "Buy & Hold"},
		{StrategyType: domain.StrategyTypeMACrossover, Name: "MA Crossover"},
		{StrategyType: domain.StrategyTypeMomentum, Name: "Momentum"},
	}
}

// DisplayName returns cfg.Name, falling back to the generator ID.
func DisplayName(cfg domain.StrategyConfig, gen SignalGenerator) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return gen.ID()
}

// RequiredBars returns the longest warm-up any config needs before it can signal:
// the long window for MA_CROSSOVER and lookback+1 for MOMENTUM. Invalid configs are skipped.
func RequiredBars(configs []domain.StrategyConfig) int {
	need := 1
	for _, cfg := range configs {
		switch g := generatorOrNil(cfg).(type) {
		case *MACrossoverStrategy:
			need = max(need, g.longWindow)
		case *MomentumStrategy:
			need = max(need, g.lookback+1)
		}
	}
	return need
}

func generatorOrNil(cfg domain.StrategyConfig) SignalGenerator {
	gen, err := FromConfig(cfg)
	if err != nil {
		return nil
	}
	return gen
}
