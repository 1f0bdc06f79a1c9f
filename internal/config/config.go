// Package config provides unified configuration loading for the simulator.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hunse/nengo/internal/constants"
)

// Config contains all simulator configuration settings.
type Config struct {
	// Simulation contains default run parameters.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Storage configures the run database.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging configures operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds defaults applied to scenarios that don't set their
// own.
type SimulationConfig struct {
	// DT is the default step size in seconds.
	DT float64 `json:"dt" yaml:"dt"`

	// Seed is the default parameter seed.
	Seed int64 `json:"seed" yaml:"seed"`
}

// StorageConfig configures where runs are persisted.
type StorageConfig struct {
	// Dir is the run database directory.
	Dir string `json:"dir" yaml:"dir"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			DT:   constants.DefaultDT,
			Seed: 0,
		},
		Storage: StorageConfig{
			Dir: ".nengo",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> ~/.nengo/config.yaml -> environment.
func Load() (*Config, error) {
	cfg := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".nengo", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileCfg, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			cfg = fileCfg
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Simulation.DT <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Simulation.DT)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir must not be empty")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NENGO_DT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulation.DT = f
		}
	}
	if v := os.Getenv("NENGO_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("NENGO_DB"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("NENGO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
