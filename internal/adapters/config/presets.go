package config

import "fmt"

// DefaultConnectionConfig returns the baseline connection policy. Presets
// below only change the numbers, never the behavior.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		QueueCapacity:            100,
		MaxReconnectAttempts:     10,
		InitialBackoffMs:         1000,
		MaxBackoffMs:             30000,
		HeartbeatIntervalSeconds: 30,
		DialTimeoutSeconds:       15,
		WriteTimeoutSeconds:      10,
		FlushIntervalMs:          50,
		Tag:                      "default",
	}
}

// Preset returns a pre-filled ConnectionConfig for a named usage profile.
// The endpoint URL is always supplied separately by the caller.
func Preset(name string) (ConnectionConfig, error) {
	cfg := DefaultConnectionConfig()
	switch name {
	case "chat":
		cfg.Tag = "chat"
	case "gaming":
		// Fast heartbeats and aggressive retries for latency-sensitive sessions.
		cfg.Tag = "gaming"
		cfg.QueueCapacity = 500
		cfg.HeartbeatIntervalSeconds = 5
		cfg.InitialBackoffMs = 250
		cfg.MaxBackoffMs = 5000
		cfg.MaxReconnectAttempts = 20
	case "iot":
		// Patient telemetry uplink: long heartbeats, deep queue, slow backoff.
		cfg.Tag = "iot"
		cfg.QueueCapacity = 1000
		cfg.HeartbeatIntervalSeconds = 120
		cfg.InitialBackoffMs = 5000
		cfg.MaxBackoffMs = 300000
		cfg.MaxReconnectAttempts = 50
	case "trading":
		// High-frequency profile: near-immediate retries, tight pacing.
		cfg.Tag = "trading"
		cfg.QueueCapacity = 1000
		cfg.HeartbeatIntervalSeconds = 2
		cfg.InitialBackoffMs = 100
		cfg.MaxBackoffMs = 5000
		cfg.MaxReconnectAttempts = 100
		cfg.FlushIntervalMs = 5
	default:
		return ConnectionConfig{}, fmt.Errorf("unknown connection preset %q", name)
	}
	return cfg, nil
}
