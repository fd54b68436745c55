package application

import (
	"time"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/config"
)

// Settings is the manager's resolved, immutable connection policy with all
// durations converted from the raw configuration units.
type Settings struct {
	EndpointURL          string
	QueueCapacity        int
	MaxReconnectAttempts int // 0 disables reconnection
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	HeartbeatInterval    time.Duration
	DialTimeout          time.Duration
	WriteTimeout         time.Duration
	FlushInterval        time.Duration
	Foreground           bool
	Tag                  string

	// Names of the connection-data fields persisted across restarts.
	IdentityField   string
	CredentialField string
}

// SettingsFromConfig converts the raw viper-backed configuration into manager
// settings, falling back to the package defaults for unset values.
func SettingsFromConfig(cc config.ConnectionConfig, sc config.StorageConfig) Settings {
	def := config.DefaultConnectionConfig()

	s := Settings{
		EndpointURL:          cc.EndpointURL,
		QueueCapacity:        cc.QueueCapacity,
		MaxReconnectAttempts: cc.MaxReconnectAttempts,
		InitialBackoff:       msOrDefault(cc.InitialBackoffMs, def.InitialBackoffMs),
		MaxBackoff:           msOrDefault(cc.MaxBackoffMs, def.MaxBackoffMs),
		HeartbeatInterval:    secOrDefault(cc.HeartbeatIntervalSeconds, def.HeartbeatIntervalSeconds),
		DialTimeout:          secOrDefault(cc.DialTimeoutSeconds, def.DialTimeoutSeconds),
		WriteTimeout:         secOrDefault(cc.WriteTimeoutSeconds, def.WriteTimeoutSeconds),
		FlushInterval:        msOrDefault(cc.FlushIntervalMs, def.FlushIntervalMs),
		Foreground:           cc.Foreground,
		Tag:                  cc.Tag,
		IdentityField:        sc.IdentityField,
		CredentialField:      sc.CredentialField,
	}
	if s.QueueCapacity <= 0 {
		s.QueueCapacity = def.QueueCapacity
	}
	if s.Tag == "" {
		s.Tag = def.Tag
	}
	if s.IdentityField == "" {
		s.IdentityField = "username"
	}
	if s.CredentialField == "" {
		s.CredentialField = "token"
	}
	return s
}

func msOrDefault(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func secOrDefault(sec, fallback int) time.Duration {
	if sec <= 0 {
		sec = fallback
	}
	return time.Duration(sec) * time.Second
}

// backoffDelay computes the reconnect delay for the given 1-based attempt:
// clamp(initial * 2^(attempt-1), initial, max). The doubling loop keeps the
// computation overflow-safe for large attempt counts.
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
