// Package config loads run configuration from YAML with environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"smc-backtest/internal/backtest"
	"smc-backtest/internal/storage"
	"smc-backtest/internal/strategy"
)

// Logging controls the zap setup in the entry points.
type Logging struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

// Config is the full run configuration.
type Config struct {
	Strategy strategy.Params `yaml:"strategy" json:"strategy"`
	Backtest backtest.Config `yaml:"backtest" json:"backtest"`
	Storage  storage.Config  `yaml:"storage" json:"storage"`
	Logging  Logging         `yaml:"logging" json:"logging"`
}

// Default returns a runnable configuration with storage disabled.
func Default() Config {
	return Config{
		Strategy: strategy.DefaultParams(),
		Backtest: backtest.DefaultConfig(),
		Storage:  storage.DefaultConfig(),
		Logging:  Logging{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults; env overrides apply either way.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays deployment values. Only connection material comes from
// the environment; strategy parameters always come from the file.
func (c *Config) applyEnv() {
	if v := env("CLICKHOUSE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := env("CH_DATABASE"); v != "" {
		c.Storage.Database = v
	}
	if v := env("CH_USER"); v != "" {
		c.Storage.User = v
	}
	if v := env("CH_PASSWORD"); v != "" {
		c.Storage.Password = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if err := c.Backtest.Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	return nil
}
