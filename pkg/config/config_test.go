package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/vigil/pkg/health"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "MONITOR_INTERVAL", "MONITOR_STATE_FILE",
	"STATE_BACKEND", "MONITORED_CONTAINERS", "MONITOR_PREFIX", "HINT_QUEUE_SIZE",
	"STREAM_BACKOFF", "MONITOR_RUNTIME", "CONTAINERD_ADDRESS", "CONTAINERD_NAMESPACE",
	"METRICS_ADDR", "PROBES_FILE", "LOG_LEVEL", "LOG_JSON",
}

// clearEnv isolates a test from the caller's environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, storage.DefaultStatePath, cfg.StateFile)
	assert.Equal(t, storage.BackendFile, cfg.StateBackend)
	assert.Empty(t, cfg.Monitored)
	assert.Equal(t, runtime.DefaultPrefix, cfg.Prefix)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.StreamBackoff)
	assert.Equal(t, runtime.KindDocker, cfg.Runtime)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.NoError(t, cfg.Validate())

	assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	t.Setenv("MONITOR_INTERVAL", "15")
	t.Setenv("MONITORED_CONTAINERS", " api, ,worker ")
	t.Setenv("MONITOR_RUNTIME", "containerd")
	t.Setenv("STATE_BACKEND", "bolt")
	t.Setenv("LOG_JSON", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireCredentials())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(-100200300), cfg.ChatID)
	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.Equal(t, []string{"api", "worker"}, cfg.Monitored)
	assert.Equal(t, runtime.KindContainerd, cfg.RuntimeOptions().Kind)
	assert.True(t, cfg.LogConfig().JSONOutput)
}

func TestLoadMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONITOR_INTERVAL", "soon")
	t.Setenv("LOG_JSON", "maybe")
	t.Setenv("TELEGRAM_CHAT_ID", "@channel")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONITOR_INTERVAL")
	assert.Contains(t, err.Error(), "LOG_JSON")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"zero backoff", func(c *Config) { c.StreamBackoff = 0 }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
		{"unknown backend", func(c *Config) { c.StateBackend = "redis" }},
		{"unknown runtime", func(c *Config) { c.Runtime = "podman" }},
		{"no discovery rule", func(c *Config) { c.Prefix = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := *base
	cfg.Runtime = "podman"
	assert.ErrorIs(t, cfg.Validate(), runtime.ErrUnsupportedRuntime)
}

func TestLoadProbes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	doc := `probes:
  - container: shop_bi_api
    type: http
    target: http://localhost:8080/health
    interval: 15s
    timeout: 2s
    retries: 2
    start_period: 1m
  - container: shop_bi_db
    type: exec
    command: ["docker", "exec", "shop_bi_db", "pg_isready"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	probes, err := LoadProbes(path)
	require.NoError(t, err)
	require.Len(t, probes, 2)

	assert.Equal(t, "shop_bi_api", probes[0].Container)
	assert.Equal(t, health.CheckTypeHTTP, probes[0].Type)
	assert.Equal(t, 15*time.Second, probes[0].Interval)
	assert.Equal(t, 2*time.Second, probes[0].Timeout)
	assert.Equal(t, 2, probes[0].Retries)
	assert.Equal(t, time.Minute, probes[0].StartPeriod)
	assert.Equal(t, []string{"docker", "exec", "shop_bi_db", "pg_isready"}, probes[1].Command)

	_, err = health.NewProber(probes)
	assert.NoError(t, err)
}

func TestLoadProbesErrors(t *testing.T) {
	_, err := LoadProbes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probes: [unterminated"), 0o644))
	_, err = LoadProbes(path)
	assert.Error(t, err)
}
