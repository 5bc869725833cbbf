package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/drgolem/opdtools/pkg/opd"
)

// Config holds the settings shared by all commands. It can be loaded from a
// YAML file; command-line flags override individual values.
type Config struct {
	// Workers bounds concurrent frame decoding (0 = GOMAXPROCS)
	Workers int `yaml:"workers"`
	// Signedness forces the sample interpretation: auto, signed or unsigned
	Signedness string `yaml:"signedness"`
	// Interpretations maps a directive version or container type to signed/unsigned
	Interpretations map[string]string `yaml:"interpretations,omitempty"`
	LogLevel        string            `yaml:"log_level"`
	// RingCapacity is the export ring buffer size in frames
	RingCapacity uint64 `yaml:"ring_capacity"`
	ExportFormat string `yaml:"export_format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Signedness:   "auto",
		LogLevel:     "info",
		RingCapacity: 64,
		ExportFormat: "csv",
	}
}

// Load reads a YAML configuration file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := opd.ParseSignedness(c.Signedness); err != nil {
		return err
	}
	for key, v := range c.Interpretations {
		if _, err := opd.ParseSignedness(v); err != nil {
			return fmt.Errorf("interpretation %q: %w", key, err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.ExportFormat {
	case "csv", "jsonl":
	default:
		return fmt.Errorf("unknown export format %q (want csv or jsonl)", c.ExportFormat)
	}
	return nil
}

// DecodeOptions converts the configuration into decoder options
func (c *Config) DecodeOptions() (*opd.DecodeOptions, error) {
	sign, err := opd.ParseSignedness(c.Signedness)
	if err != nil {
		return nil, err
	}
	opts := &opd.DecodeOptions{
		Signedness: sign,
		Workers:    c.Workers,
	}
	if len(c.Interpretations) > 0 {
		opts.Interpretations = make(map[string]opd.Signedness, len(c.Interpretations))
		for key, v := range c.Interpretations {
			s, err := opd.ParseSignedness(v)
			if err != nil {
				return nil, fmt.Errorf("interpretation %q: %w", key, err)
			}
			opts.Interpretations[key] = s
		}
	}
	return opts, nil
}

// SlogLevel returns the configured log level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
