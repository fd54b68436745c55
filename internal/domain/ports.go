package domain

import (
	"context"
	"time"
)

// The interfaces in this file are the manager's capability ports. Each has a
// default in-process implementation in internal/application and a production
// adapter where one makes sense (e.g. Redis for StateStore, NATS for
// Forwarder). Ports are called by the manager but never mutate manager state
// directly; results flow back through the manager's own event loop.

// StateStore persists small key-value connection state (last known identity
// and credential) across process restarts. Keys are namespaced by the caller,
// see pkg/statekeys.
type StateStore interface {
	// Get returns the stored value for key, or ErrStateNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Notifier surfaces connection lifecycle state to the hosting environment.
// On mobile hosts this backs the OS notification shown for the background
// service; here it is a generic status sink.
type Notifier interface {
	NotifyStatus(ctx context.Context, status string)
}

// AuthProvider supplies credentials for the connection handshake and reacts
// to auth outcomes.
type AuthProvider interface {
	// RequiresAuth reports whether credential parameters should be merged
	// into the connection URI and an authenticate frame sent after connect.
	RequiresAuth() bool

	// CredentialParams returns the query parameters to merge into the channel
	// URI. Caller-supplied connection data wins on key collision.
	CredentialParams(ctx context.Context) (map[string]string, error)

	// AuthenticateMessage returns the explicit authenticate frame to send
	// once the channel is open, or nil if none is needed.
	AuthenticateMessage(ctx context.Context) (*Message, error)

	OnAuthSuccess(ctx context.Context)
	OnAuthFailure(ctx context.Context, err error)
}

// HeartbeatStrategy generates keep-alive probes and recognizes their
// responses. Recognized responses are consumed silently by the manager and
// never reach plugins or the default handler.
type HeartbeatStrategy interface {
	ProbeMessage() Message
	IsProbeResponse(msg Message) bool
	HandleProbeResponse(msg Message)
}

// ErrorHandler receives every classified error the manager encounters.
// Errors are routed here instead of being thrown across component
// boundaries.
type ErrorHandler interface {
	HandleError(ctx context.Context, err *ConnError)
}

// LifecycleHooks receives service-level lifecycle events.
type LifecycleHooks interface {
	OnServiceStarted(ctx context.Context)
	OnServiceStopped(ctx context.Context)

	// OnReconnectScheduled fires when a reconnect timer is armed for the
	// given attempt with the given backoff delay.
	OnReconnectScheduled(ctx context.Context, attempt int, delay time.Duration)

	// OnReconnectFailed fires once when reconnection attempts are exhausted
	// and the manager enters its terminal failed state.
	OnReconnectFailed(ctx context.Context, attempts int)
}

// MessageHandler is the default sink for inbound messages no plugin claims,
// plus connection-level callbacks.
type MessageHandler interface {
	OnMessage(ctx context.Context, msg Message)
	OnConnectionEstablished(ctx context.Context)
	OnConnectionLost(ctx context.Context)
}

// Forwarder relays decoded inbound messages to the foreground application
// layer (the other side of the background/foreground split). Implementations
// must be fire-and-forget: a slow or absent consumer must never block
// dispatch.
type Forwarder interface {
	ForwardInbound(ctx context.Context, msg Message)
}
