package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 5812
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Topics!A2:G", cfg.Sheets.SheetRange)
	assert.Equal(t, "10s", cfg.Images.TimeoutPerSource)
	assert.Equal(t, 3, cfg.Publish.MaxAttempts)
	assert.Equal(t, "2s", cfg.Publish.BackoffBase)
	assert.Equal(t, "1m", cfg.Publish.BackoffMax)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 10, cfg.Pipeline.BatchLimit)
	assert.Equal(t, "4h", cfg.Scheduler.RunInterval)
	assert.True(t, cfg.Scheduler.IsEnabled(), "scheduler defaults to on when the key is absent")
}

func TestLoadConfigSchedulerCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.IsEnabled(), "an explicit enabled: false must stick")
}

func TestLoadConfigSchedulerExplicitlyEnabled(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  enabled: true
  run_interval: 1h
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.IsEnabled())
	assert.Equal(t, "1h", cfg.Scheduler.RunInterval)
}
