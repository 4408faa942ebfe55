// Package config loads gradecore's service configuration: storage
// location, sandbox defaults, and the set of configured runtimes,
// following the teacher's internal/config pattern of a single YAML-backed
// struct with a DefaultConfig, environment-variable overrides, and a
// Validate pass, adapted from LLM/shard/memory settings to the
// grading-domain settings this service actually needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig is one configured (language, container image) pairing,
// serialized form of orchestrator.Runtime.
type RuntimeConfig struct {
	ID       string `yaml:"id"`
	Language string `yaml:"language"`
	Image    string `yaml:"image"`
}

// Config holds all of gradecore's service configuration.
type Config struct {
	// StoragePath is the SQLite database file (internal/store).
	StoragePath string `yaml:"storage_path"`

	// LogLevel controls internal/logging's minimum emitted level.
	LogLevel string `yaml:"log_level"`

	// Limits are the configured timeout/memory bounds and concurrency cap.
	// cmd/graderctl sizes the executor and serve's worker pool from
	// MaxConcurrent; the timeout/memory bounds are checked by Validate but
	// not applied to submissions.
	Limits Limits `yaml:"limits"`

	// Runtimes is the set of (language, image) pairs run_submission can
	// route to (spec.md §4.8 "Resolve runtime").
	Runtimes []RuntimeConfig `yaml:"runtimes"`
}

// DefaultConfig returns gradecore's default configuration: a local SQLite
// file, one Python runtime, and DefaultLimits' bounds. The timeout_s=5 /
// memory_mb=128 system defaults themselves live in internal/orchestrator.
func DefaultConfig() *Config {
	return &Config{
		StoragePath: "data/gradecore.db",
		LogLevel:    "info",
		Limits:      DefaultLimits(),
		Runtimes: []RuntimeConfig{
			{ID: "python-3.12", Language: "python", Image: "python:3.12-slim"},
		},
	}
}

// Load reads a YAML config file, falling back to DefaultConfig when the
// file doesn't exist, and applying environment-variable overrides either
// way — same two-step shape as the teacher's config.Load.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg back out as YAML, creating the parent directory if
// needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides lets an operator override the storage path and log
// level without editing the YAML file, the same escape hatch the
// teacher's applyEnvOverrides gives for API keys and database paths.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("GRADECORE_DB"); path != "" {
		c.StoragePath = path
	}
	if level := os.Getenv("GRADECORE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Validate checks the loaded configuration is self-consistent before the
// service starts accepting submissions.
func (c *Config) Validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("config: storage_path must not be empty")
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if len(c.Runtimes) == 0 {
		return fmt.Errorf("config: at least one runtime must be configured")
	}
	seen := make(map[string]bool, len(c.Runtimes))
	for _, rt := range c.Runtimes {
		if rt.ID == "" || rt.Language == "" || rt.Image == "" {
			return fmt.Errorf("config: runtime entries require id, language, and image (got %+v)", rt)
		}
		if seen[rt.ID] {
			return fmt.Errorf("config: duplicate runtime id %q", rt.ID)
		}
		seen[rt.ID] = true
	}
	return nil
}
