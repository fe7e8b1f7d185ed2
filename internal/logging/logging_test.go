package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/coachd/internal/config"
)

func TestNew_ValidConfigs(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "debug", Format: "json"},
		{Level: "info", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "error", Format: "console"},
	} {
		logger, err := New(cfg)
		require.NoError(t, err, "level=%s format=%s", cfg.Level, cfg.Format)
		require.NotNil(t, logger)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSync_IgnoresTerminalErrno(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	logger.Info("sync test")
	assert.NoError(t, Sync(logger))
}
