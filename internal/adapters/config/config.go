package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "DAISI_CONN"

// ServerConfig holds the diagnostics HTTP server configuration.
// Note: Fields must be exported to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// ConnectionConfig is the static connection policy for one manager instance.
// It is immutable for the manager's lifetime; presets (see presets.go) are
// just pre-filled values with no behavioral divergence beyond the numbers.
type ConnectionConfig struct {
	EndpointURL              string `mapstructure:"endpoint_url"`
	QueueCapacity            int    `mapstructure:"queue_capacity"`
	MaxReconnectAttempts     int    `mapstructure:"max_reconnect_attempts"` // 0 disables reconnection
	InitialBackoffMs         int    `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs             int    `mapstructure:"max_backoff_ms"`
	HeartbeatIntervalSeconds int    `mapstructure:"heartbeat_interval_seconds"`
	DialTimeoutSeconds       int    `mapstructure:"dial_timeout_seconds"`
	WriteTimeoutSeconds      int    `mapstructure:"write_timeout_seconds"`
	FlushIntervalMs          int    `mapstructure:"flush_interval_ms"` // pacing between queued messages after reconnect
	Foreground               bool   `mapstructure:"foreground"`        // foreground vs background execution mode
	Tag                      string `mapstructure:"tag"`               // stable tag used for diagnostics and state keys
}

// RedisConfig holds Redis-related configurations for the persistent state store.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// NATSConfig holds the configuration for the foreground bridge.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// StorageConfig names the connection-data fields persisted across restarts.
type StorageConfig struct {
	IdentityField    string `mapstructure:"identity_field"`     // e.g. "username"
	CredentialField  string `mapstructure:"credential_field"`   // e.g. "token"
	CredentialAESKey string `mapstructure:"credential_aes_key"` // hex-encoded 32-byte key; empty disables at-rest encryption
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Connection ConnectionConfig `mapstructure:"connection"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	App        AppConfig        `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config *Config
	logger *zap.Logger // config internal logging uses zap directly to avoid a cycle with domain.Logger
}

// NewViperProvider creates and initializes a new configuration provider.
// It loads configuration from file and environment variables, and sets up
// hot-reloading via SIGHUP and file-change events. appCtx is the application
// lifecycle context used for graceful shutdown of the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := &Config{}
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".") // Also look in current directory for local dev

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // e.g., connection.endpoint_url becomes CONNECTION_ENDPOINT_URL

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		config: cfg,
		logger: logger,
	}

	// SIGHUP triggers a config reload without restarting the service.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				newCfg := &Config{}
				if err := v.Unmarshal(newCfg); err != nil {
					p.logger.Error("Failed to unmarshal re-read config on SIGHUP", zap.Error(err))
				} else {
					p.config = newCfg
					p.logger.Info("Configuration reloaded successfully via SIGHUP")
				}
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.String("event_op", e.Op.String()),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			p.logger.Error("Failed to unmarshal config on file change event", zap.Error(err))
		} else {
			p.config = newCfg
			p.logger.Info("Configuration reloaded successfully via file change event")
		}
	})

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("app.service_name", "daisi-conn-service")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("storage.identity_field", "username")
	v.SetDefault("storage.credential_field", "token")

	def := DefaultConnectionConfig()
	v.SetDefault("connection.queue_capacity", def.QueueCapacity)
	v.SetDefault("connection.max_reconnect_attempts", def.MaxReconnectAttempts)
	v.SetDefault("connection.initial_backoff_ms", def.InitialBackoffMs)
	v.SetDefault("connection.max_backoff_ms", def.MaxBackoffMs)
	v.SetDefault("connection.heartbeat_interval_seconds", def.HeartbeatIntervalSeconds)
	v.SetDefault("connection.dial_timeout_seconds", def.DialTimeoutSeconds)
	v.SetDefault("connection.write_timeout_seconds", def.WriteTimeoutSeconds)
	v.SetDefault("connection.flush_interval_ms", def.FlushIntervalMs)
	v.SetDefault("connection.tag", def.Tag)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
