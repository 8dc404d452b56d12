// Package config loads flowlint settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/rules"
)

// DefaultFilename is the config file looked up in the working directory.
const DefaultFilename = ".flowlint.yaml"

// Config holds every tunable setting.
type Config struct {
	// MaxIterationsHighWater is the max_iterations value above which
	// CYC006 fires.
	MaxIterationsHighWater int `yaml:"max_iterations_high_water"`

	// PatternsDir replaces the embedded pattern corpus when set.
	PatternsDir string `yaml:"patterns_dir,omitempty"`

	// RegistryDir is a directory of CUE node definitions served as the
	// live node registry.
	RegistryDir string `yaml:"registry_dir,omitempty"`

	// HistoryDB is the SQLite file validation runs are recorded in.
	// Empty disables recording.
	HistoryDB string `yaml:"history_db,omitempty"`

	// DisabledRules lists diagnostic codes to drop from results.
	DisabledRules []string `yaml:"disabled_rules,omitempty"`

	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		MaxIterationsHighWater: rules.DefaultMaxIterationsHighWater,
		LogLevel:               "info",
	}
}

// Load reads path and applies defaults for unset fields. A missing file
// at the default location yields Default(); a missing explicit path is an
// error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFilename
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML config, rejecting unknown fields.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.MaxIterationsHighWater <= 0 {
		return fmt.Errorf("max_iterations_high_water must be positive, got %d", c.MaxIterationsHighWater)
	}
	for _, code := range c.DisabledRules {
		if !ir.ValidCode(code) {
			return fmt.Errorf("disabled_rules: %q is not a diagnostic code", code)
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RuleOptions converts the config to rule options.
func (c Config) RuleOptions() rules.Options {
	return rules.Options{
		MaxIterationsHighWater: c.MaxIterationsHighWater,
		Disabled:               c.DisabledRules,
	}
}

// Level returns the configured log level.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// resolvePaths makes relative paths relative to the config file.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.PatternsDir, &c.RegistryDir, &c.HistoryDB} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
