package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/courtside/internal/live/clock"
	"github.com/mcdev12/courtside/internal/live/stream"
)

// Config is the subsystem configuration: where the push channel lives, how
// aggressively to reconnect, and the regulation clock length. Loaded from
// YAML with environment overrides.
type Config struct {
	Stream StreamConfig `yaml:"stream"`
	Clock  ClockConfig  `yaml:"clock"`
}

type StreamConfig struct {
	BaseURL              string `yaml:"base_url"`
	Transport            string `yaml:"transport"` // "sse" (default) or "websocket"
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	BaseIntervalSeconds  int    `yaml:"base_interval_seconds"`
}

type ClockConfig struct {
	AllocatedSeconds int `yaml:"allocated_seconds"`
}

// Default returns the shipped defaults: five reconnect attempts three
// seconds apart (plateauing at nine), a 45-minute regulation clock, and a
// local server.
func Default() Config {
	return Config{
		Stream: StreamConfig{
			BaseURL:              "http://localhost:8085",
			Transport:            "sse",
			MaxReconnectAttempts: 5,
			BaseIntervalSeconds:  3,
		},
		Clock: ClockConfig{
			AllocatedSeconds: clock.DefaultAllocatedSeconds,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// is absent) and then applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Stream.BaseURL = getEnv("COURTSIDE_STREAM_URL", cfg.Stream.BaseURL)
	cfg.Stream.Transport = getEnv("COURTSIDE_STREAM_TRANSPORT", cfg.Stream.Transport)
	cfg.Stream.MaxReconnectAttempts = getEnvAsInt("COURTSIDE_MAX_RECONNECT_ATTEMPTS", cfg.Stream.MaxReconnectAttempts)
	cfg.Stream.BaseIntervalSeconds = getEnvAsInt("COURTSIDE_BASE_INTERVAL_SECONDS", cfg.Stream.BaseIntervalSeconds)
	cfg.Clock.AllocatedSeconds = getEnvAsInt("COURTSIDE_ALLOCATED_SECONDS", cfg.Clock.AllocatedSeconds)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Stream.BaseURL == "" {
		return fmt.Errorf("stream.base_url must be set")
	}
	switch c.Stream.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("stream.transport must be \"sse\" or \"websocket\", got %q", c.Stream.Transport)
	}
	if c.Stream.MaxReconnectAttempts < 0 {
		return fmt.Errorf("stream.max_reconnect_attempts must be non-negative")
	}
	if c.Stream.BaseIntervalSeconds <= 0 {
		return fmt.Errorf("stream.base_interval_seconds must be positive")
	}
	if c.Clock.AllocatedSeconds <= 0 {
		return fmt.Errorf("clock.allocated_seconds must be positive")
	}
	return nil
}

// Policy converts the stream section into the client's backoff policy.
func (c StreamConfig) Policy() stream.Policy {
	p := stream.DefaultPolicy()
	p.MaxAttempts = c.MaxReconnectAttempts
	p.BaseInterval = time.Duration(c.BaseIntervalSeconds) * time.Second
	return p
}

// NewTransport builds the configured transport implementation.
func (c StreamConfig) NewTransport() stream.Transport {
	if c.Transport == "websocket" {
		return &stream.WebSocketTransport{}
	}
	return &stream.SSETransport{}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
