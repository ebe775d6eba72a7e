package domain

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyType string // "BUY_AND_HOLD" | "MA_CROSSOVER" | "MOMENTUM"
	Name         string // display name, defaults to the strategy ID

	// MA_CROSSOVER parameters
	ShortWindow int
	LongWindow  int

	// MOMENTUM parameters
	Lookback int
}

// Strategy type constants
const (
	StrategyTypeBuyAndHold  = "BUY_AND_HOLD"
	StrategyTypeMACrossover = "MA_CROSSOVER"
	StrategyTypeMomentum    = "MOMENTUM"
)

// Default strategy parameters.
const (
	DefaultShortWindow = 50
	DefaultLongWindow  = 200
	DefaultLookback    = 120 // ~6 months of trading days
)
