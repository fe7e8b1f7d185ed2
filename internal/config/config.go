// Package config provides configuration loading for coachd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the full daemon configuration.
type Config struct {
	// BaseDir is the root of all coachd files. State files live under
	// <base>/state, workflow definitions under <base>/workflows.
	BaseDir string `koanf:"base_dir"`

	Workflows WorkflowsConfig `koanf:"workflows"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// WorkflowsConfig controls the workflow catalog.
type WorkflowsConfig struct {
	// Watch reloads workflow definitions when the directory changes.
	Watch bool `koanf:"watch"`
}

// LoggingConfig controls the daemon logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &Config{
		BaseDir: filepath.Join(home, ".config", "coachd"),
		Workflows: WorkflowsConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}, nil
}

// StateDir is where the three state files are written.
func (c *Config) StateDir() string {
	return filepath.Join(c.BaseDir, "state")
}

// WorkflowsDir holds user-provided workflow definition YAML files.
func (c *Config) WorkflowsDir() string {
	return filepath.Join(c.BaseDir, "workflows")
}

// WorkflowStatePath is the active-workflow position file.
func (c *Config) WorkflowStatePath() string {
	return filepath.Join(c.StateDir(), "workflow-state.json")
}

// ProgressPath is the cumulative stats and milestones file.
func (c *Config) ProgressPath() string {
	return filepath.Join(c.StateDir(), "progress.json")
}

// ProfilePath is the learned user profile file.
func (c *Config) ProfilePath() string {
	return filepath.Join(c.StateDir(), "profile.json")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
