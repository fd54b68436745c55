package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/daisi-conn-service/internal/application"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/safego"
)

// Run wires the diagnostics endpoints, starts the connection manager, and
// serves HTTP until the context is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	cfg := a.configProvider.Get()

	a.httpServeMux.Handle("/health", middleware.RequestIDMiddleware(http.HandlerFunc(a.handleHealth)))
	a.httpServeMux.Handle("/ready", middleware.RequestIDMiddleware(http.HandlerFunc(a.handleReady)))
	a.httpServeMux.Handle("/metrics", promhttp.Handler())

	if err := a.connectionManager.Start(ctx); err != nil {
		return err
	}

	if a.bridge != nil {
		if err := a.bridge.StartOutboundRelay(ctx, a.connectionManager.Send); err != nil {
			return err
		}
	}

	// Dial automatically when an endpoint is configured. Persisted identity
	// and credential, if any, are picked up by the manager.
	if cfg.Connection.EndpointURL != "" {
		if err := a.connectionManager.Connect(nil); err != nil {
			a.logger.Warn(ctx, "Initial connect request rejected", "error", err.Error())
		}
	}

	shutdownTimeout := time.Duration(cfg.App.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	safego.Execute(ctx, a.logger, "SignalListener", func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			a.logger.Info(ctx, "Termination signal received, shutting down", "signal", sig.String())
		case <-ctx.Done():
		}
		signal.Stop(sigCh)

		a.connectionManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	})

	a.logger.Info(ctx, "Starting HTTP server",
		"service", cfg.App.ServiceName,
		"version", cfg.App.Version,
		"address", a.httpServer.Addr,
		"tag", cfg.Connection.Tag)

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info(ctx, "HTTP server stopped")
	return nil
}

// ConnectionManager exposes the manager for embedding callers that register
// plugins or drive connect/send programmatically.
func (a *App) ConnectionManager() *application.ConnectionManager {
	return a.connectionManager
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReady reports the state of every backing dependency plus the managed
// connection itself. Backing store or bridge failure makes the service
// not-ready; the managed connection being down does not, since reconnection
// is the service's whole job.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ready := true
	checks := map[string]any{
		"connection_state": a.connectionManager.State().String(),
		"queue_depth":      a.connectionManager.QueueLen(),
	}

	if a.redisClient != nil {
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if a.bridge != nil {
		if a.bridge.Conn().Status() != nats.CONNECTED {
			checks["nats"] = a.bridge.Conn().Status().String()
			ready = false
		} else {
			checks["nats"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ready": ready, "checks": checks})
}
