package domain

import "context"

// Plugin is an extension handler claiming ownership of a subset of message
// types. Plugins are tried in registration order; the first plugin whose
// claimed set contains the incoming message's type and whose HandleMessage
// returns true short-circuits dispatch.
type Plugin interface {
	// Name identifies the plugin in the registry and in logs. Registering a
	// second plugin with the same name is a no-op.
	Name() string

	// SupportedMessageTypes lists the message types this plugin claims.
	SupportedMessageTypes() []string

	// HandleMessage processes an inbound message. Returning true marks the
	// message as consumed and stops dispatch.
	HandleMessage(ctx context.Context, msg Message) bool

	// OnConnectionChanged is invoked on every connect (true) and
	// disconnect (false) transition.
	OnConnectionChanged(ctx context.Context, connected bool)

	OnServiceStarted(ctx context.Context)
	OnServiceStopped(ctx context.Context)

	// Initialize is called when the plugin is registered; a non-nil error
	// rejects the registration.
	Initialize(ctx context.Context) error

	// Dispose is called when the plugin is unregistered or the service stops.
	Dispose()
}
