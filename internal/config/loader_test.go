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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "cmdq", cfg.Service.Name)
	assert.Equal(t, "warn", cfg.Service.LogLevel)
	assert.Equal(t, "text", cfg.Service.LogFormat)
	assert.Equal(t, 5, cfg.Queue.Capacity)
	assert.NotEmpty(t, cfg.History.Path)
	assert.False(t, cfg.API.Enabled)
	require.NoError(t, validate(cfg))
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "queue:\n  capacity: 2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Queue.Capacity)
	assert.Equal(t, "warn", cfg.Service.LogLevel)
	assert.Equal(t, "text", cfg.Service.LogFormat)
	assert.NotEmpty(t, cfg.History.Path)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
service:
  name: dispatcher
  log_level: debug
  log_format: json
queue:
  capacity: 8
history:
  path: /tmp/cmdq-test/history.db
api:
  enabled: true
  listen: 127.0.0.1:9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dispatcher", cfg.Service.Name)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "json", cfg.Service.LogFormat)
	assert.Equal(t, 8, cfg.Queue.Capacity)
	assert.Equal(t, "/tmp/cmdq-test/history.db", cfg.History.Path)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.API.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadDirectoryResolvesConfigYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("queue:\n  capacity: 3\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Queue.Capacity)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.Service.LogLevel = "verbose" }, "service.log_level"},
		{"bad log format", func(c *Config) { c.Service.LogFormat = "xml" }, "service.log_format"},
		{"zero capacity", func(c *Config) { c.Queue.Capacity = -1 }, "queue.capacity"},
		{"missing history path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"api without listen", func(c *Config) { c.API.Enabled = true; c.API.Listen = "" }, "api.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
