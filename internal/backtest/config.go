package backtest

import "fmt"

// Config holds the account and execution model for one run. PositionSize is
// a balance risk fraction when <= 1.0, otherwise a fixed unit size.
type Config struct {
	InitialBalance       float64 `yaml:"initial_balance" json:"initial_balance"`
	Commission           float64 `yaml:"commission" json:"commission"`
	Slippage             float64 `yaml:"slippage" json:"slippage"`
	Spread               float64 `yaml:"spread" json:"spread"`
	PositionSize         float64 `yaml:"position_size" json:"position_size"`
	MaxPositions         int     `yaml:"max_positions" json:"max_positions"`
	InstrumentMultiplier float64 `yaml:"instrument_multiplier" json:"instrument_multiplier"`

	// RandomSlippage scales slippage by a seeded uniform factor. Off by
	// default so runs are reproducible without further setup.
	RandomSlippage bool  `yaml:"random_slippage" json:"random_slippage"`
	Seed           int64 `yaml:"seed" json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		InitialBalance:       10000.0,
		Commission:           0.0001,
		Slippage:             0.0001,
		Spread:               0.0002,
		PositionSize:         0.01,
		MaxPositions:         1,
		InstrumentMultiplier: 100000.0,
	}
}

func (c Config) Validate() error {
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be > 0, got %g", c.InitialBalance)
	}
	if c.MaxPositions < 1 {
		return fmt.Errorf("max_positions must be >= 1, got %d", c.MaxPositions)
	}
	if c.PositionSize <= 0 {
		return fmt.Errorf("position_size must be > 0, got %g", c.PositionSize)
	}
	if c.InstrumentMultiplier <= 0 {
		return fmt.Errorf("instrument_multiplier must be > 0, got %g", c.InstrumentMultiplier)
	}
	if c.Commission < 0 || c.Slippage < 0 || c.Spread < 0 {
		return fmt.Errorf("commission, slippage and spread must be >= 0")
	}
	return nil
}
