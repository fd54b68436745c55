package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/crypto"
)

// StateStoreAdapter implements the domain.StateStore interface using Redis,
// persisting the last-known connection identity and credential across
// process restarts. When an AES key is configured, values are encrypted at
// rest with AES-GCM.
type StateStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	aesKeyHex   string // empty disables at-rest encryption
}

// NewStateStoreAdapter creates a new instance of StateStoreAdapter.
func NewStateStoreAdapter(redisClient *redis.Client, logger domain.Logger, aesKeyHex string) *StateStoreAdapter {
	if redisClient == nil {
		// A nil client is a critical setup error, not a runtime condition.
		panic("redisClient cannot be nil in NewStateStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewStateStoreAdapter")
	}
	return &StateStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
		aesKeyHex:   aesKeyHex,
	}
}

// Get retrieves one persisted state value, decrypting it when at-rest
// encryption is enabled. Returns domain.ErrStateNotFound on a missing key.
func (a *StateStoreAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Connection state miss", "key", key)
		return "", domain.ErrStateNotFound
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get connection state from Redis", "key", key, "error", err.Error())
		return "", fmt.Errorf("redis GET for state key '%s' failed: %w", key, err)
	}

	if a.aesKeyHex != "" {
		plaintext, err := crypto.DecryptAESGCM(a.aesKeyHex, val)
		if err != nil {
			a.logger.Error(ctx, "Failed to decrypt connection state value", "key", key, "error", err.Error())
			return "", fmt.Errorf("failed to decrypt state value for key '%s': %w", key, err)
		}
		val = string(plaintext)
	}

	// Log a fingerprint, never the value: credentials pass through here.
	a.logger.Debug(ctx, "Connection state hit", "key", key, "value_sha256", crypto.Sha256Hex(val)[:8])
	return val, nil
}

// Set stores one state value, encrypting it when at-rest encryption is
// enabled.
func (a *StateStoreAdapter) Set(ctx context.Context, key, value string) error {
	stored := value
	if a.aesKeyHex != "" {
		encrypted, err := crypto.EncryptAESGCM(a.aesKeyHex, []byte(value))
		if err != nil {
			a.logger.Error(ctx, "Failed to encrypt connection state value", "key", key, "error", err.Error())
			return fmt.Errorf("failed to encrypt state value for key '%s': %w", key, err)
		}
		stored = encrypted
	}

	if err := a.redisClient.Set(ctx, key, stored, 0).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set connection state in Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for state key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Persisted connection state", "key", key, "value_sha256", crypto.Sha256Hex(value)[:8])
	return nil
}

// Delete removes one state value. Deleting a missing key is not an error.
func (a *StateStoreAdapter) Delete(ctx context.Context, key string) error {
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete connection state from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for state key '%s' failed: %w", key, err)
	}
	return nil
}
