// Package config holds the optionwatch runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete optionwatch configuration.
type Config struct {
	Positions string         `json:"positions" yaml:"positions"`
	Refresh   RefreshConfig  `json:"refresh" yaml:"refresh"`
	Provider  ProviderConfig `json:"provider" yaml:"provider"`
	Defaults  DefaultsConfig `json:"defaults" yaml:"defaults"`
	Journal   JournalConfig  `json:"journal" yaml:"journal"`
}

// RefreshConfig controls the cycle cadence and fetch parallelism.
type RefreshConfig struct {
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
	FetchLimit      int `json:"fetch_limit" yaml:"fetch_limit"`
}

// Interval returns the refresh cadence as a duration.
func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// ProviderConfig points at the market-data provider.
type ProviderConfig struct {
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-request provider timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// DefaultsConfig carries the documented fallback values substituted when
// the provider degrades, plus the contract multiplier.
type DefaultsConfig struct {
	RiskFreeRate      float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	ImpliedVol        float64 `json:"implied_vol" yaml:"implied_vol"`
	SharesPerContract int     `json:"shares_per_contract" yaml:"shares_per_contract"`
}

// JournalConfig selects the telemetry journal backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CyclesFile string `json:"cycles_file,omitempty" yaml:"cycles_file,omitempty"`
	QuotesFile string `json:"quotes_file,omitempty" yaml:"quotes_file,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content, trying YAML first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Positions == "" {
		return fmt.Errorf("positions file is required")
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh.interval_seconds must be positive")
	}
	if c.Refresh.FetchLimit <= 0 {
		return fmt.Errorf("refresh.fetch_limit must be positive")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be positive")
	}
	if c.Defaults.RiskFreeRate < 0 || c.Defaults.RiskFreeRate > 1 {
		return fmt.Errorf("defaults.risk_free_rate must be a decimal fraction between 0 and 1")
	}
	if c.Defaults.ImpliedVol <= 0 || c.Defaults.ImpliedVol > 5 {
		return fmt.Errorf("defaults.implied_vol must be between 0 and 5")
	}
	if c.Defaults.SharesPerContract <= 0 {
		return fmt.Errorf("defaults.shares_per_contract must be positive")
	}
	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.CyclesFile == "" || c.Journal.QuotesFile == "" {
			return fmt.Errorf("journal cycles_file and quotes_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Positions: "positions.csv",
		Refresh: RefreshConfig{
			IntervalSeconds: 15,
			FetchLimit:      4,
		},
		Provider: ProviderConfig{
			TimeoutSeconds: 10,
		},
		Defaults: DefaultsConfig{
			RiskFreeRate:      0.05,
			ImpliedVol:        0.25,
			SharesPerContract: 100,
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}
