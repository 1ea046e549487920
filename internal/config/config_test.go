package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/courtside/internal/live/stream"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stream:
  base_url: https://live.example.com
  transport: websocket
  max_reconnect_attempts: 8
  base_interval_seconds: 2
clock:
  allocated_seconds: 3600
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://live.example.com", cfg.Stream.BaseURL)
	assert.Equal(t, "websocket", cfg.Stream.Transport)
	assert.Equal(t, 8, cfg.Stream.MaxReconnectAttempts)
	assert.Equal(t, 2, cfg.Stream.BaseIntervalSeconds)
	assert.Equal(t, 3600, cfg.Clock.AllocatedSeconds)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  base_url: https://file.example.com\n"), 0o644))

	t.Setenv("COURTSIDE_STREAM_URL", "https://env.example.com")
	t.Setenv("COURTSIDE_BASE_INTERVAL_SECONDS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Stream.BaseURL)
	assert.Equal(t, 5, cfg.Stream.BaseIntervalSeconds)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad transport", "stream:\n  transport: carrier-pigeon\n"},
		{"negative attempts", "stream:\n  max_reconnect_attempts: -1\n"},
		{"zero interval", "stream:\n  base_interval_seconds: 0\n"},
		{"zero allocation", "clock:\n  allocated_seconds: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestStreamConfigPolicy(t *testing.T) {
	c := StreamConfig{MaxReconnectAttempts: 7, BaseIntervalSeconds: 4}
	p := c.Policy()
	assert.Equal(t, 7, p.MaxAttempts)
	assert.Equal(t, 4*time.Second, p.BaseInterval)
	assert.Equal(t, stream.DefaultPolicy().MultiplierCap, p.MultiplierCap)
}

func TestStreamConfigTransportSelection(t *testing.T) {
	assert.IsType(t, &stream.SSETransport{}, StreamConfig{Transport: "sse"}.NewTransport())
	assert.IsType(t, &stream.WebSocketTransport{}, StreamConfig{Transport: "websocket"}.NewTransport())
}
