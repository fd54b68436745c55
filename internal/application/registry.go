package application

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// PluginRegistry holds the ordered set of extension handlers. Dispatch is
// first-match-wins in registration order.
type PluginRegistry struct {
	logger domain.Logger

	mu      sync.Mutex
	plugins []domain.Plugin
}

func NewPluginRegistry(logger domain.Logger) *PluginRegistry {
	return &PluginRegistry{logger: logger}
}

// Register adds a plugin to the end of the dispatch order and initializes
// it. Registering a plugin whose name is already present is a no-op.
func (r *PluginRegistry) Register(ctx context.Context, p domain.Plugin) error {
	if p == nil {
		return fmt.Errorf("cannot register a nil plugin")
	}

	r.mu.Lock()
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			r.mu.Unlock()
			r.logger.Debug(ctx, "Plugin already registered, ignoring", "plugin", p.Name())
			return nil
		}
	}
	r.mu.Unlock()

	if err := p.Initialize(ctx); err != nil {
		return fmt.Errorf("plugin %s failed to initialize: %w", p.Name(), err)
	}

	r.mu.Lock()
	r.plugins = append(r.plugins, p)
	r.mu.Unlock()

	r.logger.Info(ctx, "Plugin registered", "plugin", p.Name(), "types", p.SupportedMessageTypes())
	return nil
}

// Unregister removes a plugin by name and disposes it. Unknown names are
// ignored.
func (r *PluginRegistry) Unregister(ctx context.Context, name string) {
	r.mu.Lock()
	var removed domain.Plugin
	for i, p := range r.plugins {
		if p.Name() == name {
			removed = p
			r.plugins = append(r.plugins[:i], r.plugins[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if removed != nil {
		removed.Dispose()
		r.logger.Info(ctx, "Plugin unregistered", "plugin", name)
	}
}

// Dispatch offers msg to each plugin in registration order whose claimed
// type set contains msg.Type. The first handler returning true consumes the
// message and stops dispatch; false from Dispatch means no plugin claimed it.
func (r *PluginRegistry) Dispatch(ctx context.Context, msg domain.Message) bool {
	for _, p := range r.snapshot() {
		if !claims(p, msg.Type) {
			continue
		}
		if p.HandleMessage(ctx, msg) {
			return true
		}
	}
	return false
}

// NotifyConnectionChanged fans a connect/disconnect transition out to every
// registered plugin.
func (r *PluginRegistry) NotifyConnectionChanged(ctx context.Context, connected bool) {
	for _, p := range r.snapshot() {
		p.OnConnectionChanged(ctx, connected)
	}
}

func (r *PluginRegistry) NotifyServiceStarted(ctx context.Context) {
	for _, p := range r.snapshot() {
		p.OnServiceStarted(ctx)
	}
}

func (r *PluginRegistry) NotifyServiceStopped(ctx context.Context) {
	for _, p := range r.snapshot() {
		p.OnServiceStopped(ctx)
	}
}

// DisposeAll disposes every plugin and empties the registry; used on service
// shutdown.
func (r *PluginRegistry) DisposeAll() {
	r.mu.Lock()
	plugins := r.plugins
	r.plugins = nil
	r.mu.Unlock()

	for _, p := range plugins {
		p.Dispose()
	}
}

func (r *PluginRegistry) snapshot() []domain.Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

func claims(p domain.Plugin, msgType string) bool {
	for _, t := range p.SupportedMessageTypes() {
		if t == msgType {
			return true
		}
	}
	return false
}
