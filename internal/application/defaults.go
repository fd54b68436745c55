package application

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// Default in-process implementations for every port. Each is swappable
// without touching the ConnectionManager; production deployments typically
// replace MemoryStateStore with the Redis adapter and the forwarder with the
// NATS bridge.

// MemoryStateStore is the default StateStore: a process-local map. State does
// not survive restarts, which is acceptable for tests and single-run tools.
type MemoryStateStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{values: make(map[string]string)}
}

func (s *MemoryStateStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	if !ok {
		return "", domain.ErrStateNotFound
	}
	return val, nil
}

func (s *MemoryStateStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// LoggingNotifier is the default Notifier: status text goes to the log
// instead of an OS notification surface.
type LoggingNotifier struct {
	logger domain.Logger
}

func NewLoggingNotifier(logger domain.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

func (n *LoggingNotifier) NotifyStatus(ctx context.Context, status string) {
	n.logger.Info(ctx, "Connection status changed", "status", status)
}

// NoAuthProvider is the default AuthProvider: no credentials, no handshake
// parameters, no authenticate frame.
type NoAuthProvider struct{}

func (NoAuthProvider) RequiresAuth() bool { return false }

func (NoAuthProvider) CredentialParams(context.Context) (map[string]string, error) {
	return nil, nil
}

func (NoAuthProvider) AuthenticateMessage(context.Context) (*domain.Message, error) {
	return nil, nil
}

func (NoAuthProvider) OnAuthSuccess(context.Context)        {}
func (NoAuthProvider) OnAuthFailure(context.Context, error) {}

// StaticAuthProvider supplies a fixed credential map as handshake query
// parameters and sends them again in an explicit authenticate frame once the
// channel is open.
type StaticAuthProvider struct {
	Params map[string]string
}

func (p *StaticAuthProvider) RequiresAuth() bool { return len(p.Params) > 0 }

func (p *StaticAuthProvider) CredentialParams(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(p.Params))
	for k, v := range p.Params {
		out[k] = v
	}
	return out, nil
}

func (p *StaticAuthProvider) AuthenticateMessage(context.Context) (*domain.Message, error) {
	payload := make(map[string]any, len(p.Params))
	for k, v := range p.Params {
		payload[k] = v
	}
	msg := domain.NewMessage(domain.MessageTypeAuthenticate, payload)
	return &msg, nil
}

func (p *StaticAuthProvider) OnAuthSuccess(context.Context)        {}
func (p *StaticAuthProvider) OnAuthFailure(context.Context, error) {}

// JSONHeartbeat is the default HeartbeatStrategy: it emits
// {"type":"heartbeat"} probes and recognizes "heartbeat_response" and "pong"
// frames as answers.
type JSONHeartbeat struct {
	mu           sync.Mutex
	lastResponse time.Time
}

func NewJSONHeartbeat() *JSONHeartbeat {
	return &JSONHeartbeat{}
}

func (h *JSONHeartbeat) ProbeMessage() domain.Message {
	return domain.NewMessage(domain.MessageTypeHeartbeat, nil)
}

func (h *JSONHeartbeat) IsProbeResponse(msg domain.Message) bool {
	return msg.Type == domain.MessageTypeHeartbeatResponse || msg.Type == domain.MessageTypePong
}

func (h *JSONHeartbeat) HandleProbeResponse(msg domain.Message) {
	h.mu.Lock()
	h.lastResponse = time.Now()
	h.mu.Unlock()
}

// LastResponse reports when the most recent probe answer arrived; zero if
// none has.
func (h *JSONHeartbeat) LastResponse() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastResponse
}

// LoggingErrorHandler is the default ErrorHandler: transport errors log as
// warnings since the reconnection state machine already handles them,
// everything else as errors.
type LoggingErrorHandler struct {
	logger domain.Logger
}

func NewLoggingErrorHandler(logger domain.Logger) *LoggingErrorHandler {
	return &LoggingErrorHandler{logger: logger}
}

func (h *LoggingErrorHandler) HandleError(ctx context.Context, err *domain.ConnError) {
	switch err.Kind {
	case domain.ErrKindTransport, domain.ErrKindDecode:
		h.logger.Warn(ctx, "Connection error", "kind", string(err.Kind), "op", err.Op, "error", err.Error())
	default:
		h.logger.Error(ctx, "Connection error", "kind", string(err.Kind), "op", err.Op, "error", err.Error())
	}
}

// LoggingLifecycle is the default LifecycleHooks implementation.
type LoggingLifecycle struct {
	logger domain.Logger
}

func NewLoggingLifecycle(logger domain.Logger) *LoggingLifecycle {
	return &LoggingLifecycle{logger: logger}
}

func (l *LoggingLifecycle) OnServiceStarted(ctx context.Context) {
	l.logger.Info(ctx, "Connection service started")
}

func (l *LoggingLifecycle) OnServiceStopped(ctx context.Context) {
	l.logger.Info(ctx, "Connection service stopped")
}

func (l *LoggingLifecycle) OnReconnectScheduled(ctx context.Context, attempt int, delay time.Duration) {
	l.logger.Info(ctx, "Reconnect scheduled", "attempt", attempt, "delay", delay.String())
}

func (l *LoggingLifecycle) OnReconnectFailed(ctx context.Context, attempts int) {
	l.logger.Error(ctx, "Reconnection attempts exhausted", "attempts", attempts)
}

// LoggingMessageHandler is the default MessageHandler for messages no plugin
// claims.
type LoggingMessageHandler struct {
	logger domain.Logger
}

func NewLoggingMessageHandler(logger domain.Logger) *LoggingMessageHandler {
	return &LoggingMessageHandler{logger: logger}
}

func (h *LoggingMessageHandler) OnMessage(ctx context.Context, msg domain.Message) {
	h.logger.Debug(ctx, "Unclaimed message received", "type", msg.Type, "id", msg.ID)
}

func (h *LoggingMessageHandler) OnConnectionEstablished(ctx context.Context) {
	h.logger.Info(ctx, "Connection established")
}

func (h *LoggingMessageHandler) OnConnectionLost(ctx context.Context) {
	h.logger.Info(ctx, "Connection lost")
}

// ChannelForwarder is the default in-process Forwarder: decoded inbound
// messages are relayed to the application layer over a buffered channel.
// Delivery is fire-and-forget; when the consumer lags the message is dropped
// rather than blocking dispatch.
type ChannelForwarder struct {
	logger domain.Logger
	ch     chan domain.Message
}

func NewChannelForwarder(logger domain.Logger, buffer int) *ChannelForwarder {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelForwarder{
		logger: logger,
		ch:     make(chan domain.Message, buffer),
	}
}

func (f *ChannelForwarder) ForwardInbound(ctx context.Context, msg domain.Message) {
	select {
	case f.ch <- msg:
	default:
		f.logger.Warn(ctx, "Foreground forwarder buffer full, dropping message", "type", msg.Type)
	}
}

// Messages exposes the relay channel to the foreground consumer.
func (f *ChannelForwarder) Messages() <-chan domain.Message {
	return f.ch
}
