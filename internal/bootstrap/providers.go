package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/logger"
	appnats "gitlab.com/timkado/api/daisi-conn-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/daisi-conn-service/internal/adapters/redis"
	wsadapter "gitlab.com/timkado/api/daisi-conn-service/internal/adapters/websocket"
	"gitlab.com/timkado/api/daisi-conn-service/internal/application"
	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily
// for config initialization before the domain logger exists. It returns the
// logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App bundles everything the running service needs. It is assembled by Wire.
type App struct {
	configProvider    config.Provider
	logger            domain.Logger
	httpServeMux      *http.ServeMux
	httpServer        *http.Server
	connectionManager *application.ConnectionManager
	bridge            *appnats.BridgeAdapter // nil when the NATS bridge is disabled
	redisClient       *redis.Client          // nil when Redis is disabled
}

// NewApp is the constructor for App, used by Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	connManager *application.ConnectionManager,
	bridge *appnats.BridgeAdapter,
	redisClient *redis.Client,
) (*App, func(), error) {
	app := &App{
		configProvider:    cfgProvider,
		logger:            appLogger,
		httpServeMux:      mux,
		httpServer:        server,
		connectionManager: connManager,
		bridge:            bridge,
		redisClient:       redisClient,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		app.connectionManager.Stop()
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration. appCtx is passed
// through so the reload goroutine shuts down with the application.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// SettingsProvider resolves the manager's connection policy from config.
func SettingsProvider(cfgProvider config.Provider) application.Settings {
	appCfg := cfgProvider.Get()
	return application.SettingsFromConfig(appCfg.Connection, appCfg.Storage)
}

// HTTPServeMuxProvider provides the diagnostics HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the diagnostics HTTP server configured
// for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function, or a
// nil client when Redis is disabled in configuration.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if !appCfg.Redis.Enabled {
		appLogger.Info(context.Background(), "Redis disabled; connection state will not survive restarts")
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// StateStoreProvider provides the persistent state store: Redis-backed when
// available, in-memory otherwise.
func StateStoreProvider(redisClient *redis.Client, cfgProvider config.Provider, appLogger domain.Logger) domain.StateStore {
	if redisClient == nil {
		return application.NewMemoryStateStore()
	}
	appCfg := cfgProvider.Get()
	return appredis.NewStateStoreAdapter(redisClient, appLogger, appCfg.Storage.CredentialAESKey)
}

// DialerProvider provides the WebSocket transport.
func DialerProvider(appLogger domain.Logger) domain.Dialer {
	return wsadapter.NewDialerAdapter(appLogger)
}

// BridgeAdapterProvider provides the NATS bridge, or nil when it is disabled
// in configuration. In foreground mode the application layer runs in-process,
// so the cross-process bridge is skipped even when NATS is enabled.
func BridgeAdapterProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.BridgeAdapter, func(), error) {
	appCfg := cfgProvider.Get()
	if !appCfg.NATS.Enabled || appCfg.Connection.Foreground {
		appLogger.Info(context.Background(), "NATS bridge not in use; using in-process forwarder",
			"nats_enabled", appCfg.NATS.Enabled, "foreground", appCfg.Connection.Foreground)
		return nil, func() {}, nil
	}
	return appnats.NewBridgeAdapter(ctx, cfgProvider, appLogger)
}

// ForwarderProvider selects the foreground forwarder: the NATS bridge when
// enabled, otherwise the in-process channel forwarder.
func ForwarderProvider(bridge *appnats.BridgeAdapter, appLogger domain.Logger) domain.Forwarder {
	if bridge != nil {
		return bridge
	}
	return application.NewChannelForwarder(appLogger, 64)
}

// PluginRegistryProvider provides the shared plugin registry.
func PluginRegistryProvider(appLogger domain.Logger) *application.PluginRegistry {
	return application.NewPluginRegistry(appLogger)
}

// PortsProvider assembles the manager's capability ports. Ports left unset
// here fall back to the application package defaults.
func PortsProvider(stateStore domain.StateStore, dialer domain.Dialer, forwarder domain.Forwarder) application.Ports {
	return application.Ports{
		Dialer:    dialer,
		Storage:   stateStore,
		Forwarder: forwarder,
	}
}

// ConnectionManagerProvider provides the connection manager engine.
func ConnectionManagerProvider(appLogger domain.Logger, settings application.Settings, ports application.Ports, registry *application.PluginRegistry) *application.ConnectionManager {
	return application.NewConnectionManager(appLogger, settings, ports, registry)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	SettingsProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	StateStoreProvider,
	DialerProvider,
	BridgeAdapterProvider,
	ForwarderProvider,

	// Application services
	PluginRegistryProvider,
	PortsProvider,
	ConnectionManagerProvider,
	NewApp,
)
