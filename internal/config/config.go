// Package config loads fragq settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all fragq configuration.
type Config struct {
	Queue     QueueConfig     `yaml:"queue"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// QueueConfig configures new queues.
type QueueConfig struct {
	FragmentStrength float64 `yaml:"fragment_strength"`
}

// EvolutionConfig holds the default genome operator parameters.
type EvolutionConfig struct {
	NoiseMagnitude        float64 `yaml:"noise_magnitude"`
	CrossoverSwaps        int     `yaml:"crossover_swaps"`
	InterpolationStrength float64 `yaml:"interpolation_strength"`
	FeatureSpacing        int     `yaml:"feature_spacing"`
	Seed                  uint64  `yaml:"seed"` // 0 = seed from the runtime
}

// ArchiveConfig locates the SQLite archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{FragmentStrength: 1.0},
		Evolution: EvolutionConfig{
			NoiseMagnitude:        0.05,
			CrossoverSwaps:        4,
			InterpolationStrength: 0.5,
			FeatureSpacing:        4,
		},
		Archive: ArchiveConfig{Path: filepath.Join(".fragq", "archive.db")},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("FRAGQ_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FRAGQ_SEED %q: %w", v, err)
		}
		c.Evolution.Seed = seed
	}
	if v := os.Getenv("FRAGQ_ARCHIVE"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("FRAGQ_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// ValidLevels lists the accepted logging levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Queue.FragmentStrength <= 0 {
		return fmt.Errorf("queue.fragment_strength must be positive, got %g", c.Queue.FragmentStrength)
	}
	if c.Evolution.CrossoverSwaps < 0 {
		return fmt.Errorf("evolution.crossover_swaps must not be negative, got %d", c.Evolution.CrossoverSwaps)
	}
	if c.Evolution.FeatureSpacing < 1 {
		return fmt.Errorf("evolution.feature_spacing must be at least 1, got %d", c.Evolution.FeatureSpacing)
	}
	if c.Archive.Path == "" {
		return errors.New("archive.path must not be empty")
	}

	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (valid: json, text)", c.Logging.Format)
	}
	return nil
}
