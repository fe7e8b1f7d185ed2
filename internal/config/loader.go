package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// envPrefix namespaces the environment overrides: COACHD_LOGGING_LEVEL,
// COACHD_BASE_DIR, COACHD_WORKFLOWS_WATCH.
const envPrefix = "COACHD_"

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (COACHD_LOGGING_LEVEL, ...)
//  2. YAML config file (~/.config/coachd/config.yaml by default)
//  3. Defaults
//
// A missing config file is not an error; files over 1MB are rejected.
func LoadWithFile(configPath string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = filepath.Join(cfg.BaseDir, "config.yaml")
	}

	k := koanf.New(".")

	if _, err := os.Stat(configPath); err == nil {
		// Open once and read through the descriptor so the size check
		// and the read see the same file.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// COACHD_LOGGING_LEVEL -> logging.level; the first underscore after
	// the prefix splits section from field when the head names a config
	// section. Top-level keys like COACHD_BASE_DIR stay flat.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 2 && (parts[0] == "workflows" || parts[0] == "logging") {
			return parts[0] + "." + parts[1]
		}
		return lower
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// EnsureDirs creates the coachd directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.BaseDir, c.StateDir(), c.WorkflowsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
