package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/config"
)

func TestBackoffDelayDoublesAndClamps(t *testing.T) {
	initial := time.Second
	max := 30 * time.Second

	assert.Equal(t, 1*time.Second, backoffDelay(1, initial, max))
	assert.Equal(t, 2*time.Second, backoffDelay(2, initial, max))
	assert.Equal(t, 4*time.Second, backoffDelay(3, initial, max))
	assert.Equal(t, 8*time.Second, backoffDelay(4, initial, max))
	assert.Equal(t, 16*time.Second, backoffDelay(5, initial, max))
	assert.Equal(t, 30*time.Second, backoffDelay(6, initial, max))
	assert.Equal(t, 30*time.Second, backoffDelay(7, initial, max))
}

func TestBackoffDelayLargeAttemptDoesNotOverflow(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoffDelay(500, time.Second, 30*time.Second))
}

func TestBackoffDelayDegenerateInputs(t *testing.T) {
	// Attempt below 1 behaves like the first attempt.
	assert.Equal(t, time.Second, backoffDelay(0, time.Second, 30*time.Second))
	// Non-positive initial falls back to one second.
	assert.Equal(t, time.Second, backoffDelay(1, 0, 30*time.Second))
	// Max below initial is lifted to initial.
	assert.Equal(t, 5*time.Second, backoffDelay(3, 5*time.Second, time.Second))
}

func TestSettingsFromConfigDefaults(t *testing.T) {
	s := SettingsFromConfig(config.ConnectionConfig{}, config.StorageConfig{})

	assert.Equal(t, 100, s.QueueCapacity)
	assert.Equal(t, time.Second, s.InitialBackoff)
	assert.Equal(t, 30*time.Second, s.MaxBackoff)
	assert.Equal(t, 30*time.Second, s.HeartbeatInterval)
	assert.Equal(t, 15*time.Second, s.DialTimeout)
	assert.Equal(t, 10*time.Second, s.WriteTimeout)
	assert.Equal(t, 50*time.Millisecond, s.FlushInterval)
	assert.Equal(t, "default", s.Tag)
	assert.Equal(t, "username", s.IdentityField)
	assert.Equal(t, "token", s.CredentialField)
}

func TestSettingsFromConfigExplicitValues(t *testing.T) {
	cc := config.ConnectionConfig{
		EndpointURL:              "wss://example.com/ws",
		QueueCapacity:            500,
		MaxReconnectAttempts:     20,
		InitialBackoffMs:         250,
		MaxBackoffMs:             5000,
		HeartbeatIntervalSeconds: 5,
		FlushIntervalMs:          5,
		Tag:                      "gaming",
	}
	sc := config.StorageConfig{IdentityField: "device_id", CredentialField: "api_key"}

	s := SettingsFromConfig(cc, sc)
	assert.Equal(t, "wss://example.com/ws", s.EndpointURL)
	assert.Equal(t, 500, s.QueueCapacity)
	assert.Equal(t, 20, s.MaxReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, s.InitialBackoff)
	assert.Equal(t, 5*time.Second, s.MaxBackoff)
	assert.Equal(t, 5*time.Second, s.HeartbeatInterval)
	assert.Equal(t, 5*time.Millisecond, s.FlushInterval)
	assert.Equal(t, "gaming", s.Tag)
	assert.Equal(t, "device_id", s.IdentityField)
	assert.Equal(t, "api_key", s.CredentialField)
}

func TestSettingsFromConfigZeroMaxAttemptsKept(t *testing.T) {
	// Zero means reconnection disabled and must not be replaced by a default.
	s := SettingsFromConfig(config.ConnectionConfig{MaxReconnectAttempts: 0}, config.StorageConfig{})
	assert.Equal(t, 0, s.MaxReconnectAttempts)
}
