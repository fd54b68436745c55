package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/contextkeys"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/safego"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/statekeys"
)

// Ports bundles the capability interfaces the manager is constructed with.
// Nil fields are replaced with the package defaults, so callers only supply
// what they want to override.
type Ports struct {
	Dialer    domain.Dialer
	Storage   domain.StateStore
	Notifier  domain.Notifier
	Auth      domain.AuthProvider
	Heartbeat domain.HeartbeatStrategy
	Errors    domain.ErrorHandler
	Lifecycle domain.LifecycleHooks
	Handler   domain.MessageHandler
	Forwarder domain.Forwarder
}

func (p *Ports) applyDefaults(logger domain.Logger) {
	if p.Storage == nil {
		p.Storage = NewMemoryStateStore()
	}
	if p.Notifier == nil {
		p.Notifier = NewLoggingNotifier(logger)
	}
	if p.Auth == nil {
		p.Auth = NoAuthProvider{}
	}
	if p.Heartbeat == nil {
		p.Heartbeat = NewJSONHeartbeat()
	}
	if p.Errors == nil {
		p.Errors = NewLoggingErrorHandler(logger)
	}
	if p.Lifecycle == nil {
		p.Lifecycle = NewLoggingLifecycle(logger)
	}
	if p.Handler == nil {
		p.Handler = NewLoggingMessageHandler(logger)
	}
	if p.Forwarder == nil {
		p.Forwarder = NewChannelForwarder(logger, 64)
	}
}

// ConnectionManager owns the socket, the reconnection state machine, the
// outbound queue, the heartbeat timer, and inbound dispatch. All state below
// the command channel is owned by a single event loop goroutine: the read
// pump, both timers, and the public API all post work onto that loop, so no
// two handlers ever run concurrently.
type ConnectionManager struct {
	logger   domain.Logger
	settings Settings
	ports    Ports
	registry *PluginRegistry

	commands  chan func()
	lifeMu    sync.Mutex // serializes Start and Stop
	runCtx    context.Context
	cancelRun context.CancelFunc
	runDone   chan struct{}
	started   atomic.Bool
	stateVal  atomic.Int32

	// Everything below is touched only from the event loop.
	state             domain.ConnectionState
	conn              domain.Conn
	connGen           int
	connCancel        context.CancelFunc
	queue             *sendQueue
	shouldReconnect   bool
	reconnectAttempts int
	reconnectTimer    *time.Timer
	timerGen          int
	flushing          bool
}

// NewConnectionManager wires configuration and ports into a manager. The
// registry may be shared with the caller for dynamic plugin management; pass
// nil to have the manager create its own.
func NewConnectionManager(logger domain.Logger, settings Settings, ports Ports, registry *PluginRegistry) *ConnectionManager {
	ports.applyDefaults(logger)
	if registry == nil {
		registry = NewPluginRegistry(logger)
	}
	if settings.HeartbeatInterval <= 0 {
		// The run loop's ticker requires a positive interval.
		settings.HeartbeatInterval = 30 * time.Second
	}
	cm := &ConnectionManager{
		logger:   logger.With("tag", settings.Tag),
		settings: settings,
		ports:    ports,
		registry: registry,
		commands: make(chan func(), settings.QueueCapacity+64),
		queue:    newSendQueue(settings.QueueCapacity),
	}
	cm.state = domain.StateDisconnected
	return cm
}

// Registry exposes the plugin registry for dynamic registration.
func (cm *ConnectionManager) Registry() *PluginRegistry {
	return cm.registry
}

// State returns the current connection state. Safe from any goroutine.
func (cm *ConnectionManager) State() domain.ConnectionState {
	return domain.ConnectionState(cm.stateVal.Load())
}

// QueueLen reports the number of messages awaiting transmission.
func (cm *ConnectionManager) QueueLen() int {
	return cm.queue.Len()
}

// Start launches the event loop. Idempotent; the second call is a no-op.
func (cm *ConnectionManager) Start(ctx context.Context) error {
	cm.lifeMu.Lock()
	defer cm.lifeMu.Unlock()
	if cm.started.Load() {
		return nil
	}
	ctx = context.WithValue(ctx, contextkeys.TagKey, cm.settings.Tag)
	cm.runCtx, cm.cancelRun = context.WithCancel(ctx)
	cm.runDone = make(chan struct{})

	safego.Execute(cm.runCtx, cm.logger, "ConnectionManagerLoop", func() {
		cm.run(cm.runCtx)
	})

	// The flag flips only after runCtx is in place, so a Send or Connect
	// racing with Start never posts against a nil context.
	cm.started.Store(true)

	cm.ports.Lifecycle.OnServiceStarted(cm.runCtx)
	cm.registry.NotifyServiceStarted(cm.runCtx)
	return nil
}

// Stop disconnects, stops the event loop, and notifies plugins and lifecycle
// hooks. Idempotent.
func (cm *ConnectionManager) Stop() {
	cm.lifeMu.Lock()
	defer cm.lifeMu.Unlock()
	if !cm.started.Load() {
		return
	}
	cm.started.Store(false)
	cm.post(func() { cm.doDisconnect(cm.runCtx) })
	cm.cancelRun()
	<-cm.runDone

	ctx := context.Background()
	cm.registry.NotifyServiceStopped(ctx)
	cm.registry.DisposeAll()
	cm.ports.Lifecycle.OnServiceStopped(ctx)
}

// Connect asks the manager to open the channel, merging connectionData into
// the endpoint query string. A connect while already connected is rejected;
// a connect while reconnecting supersedes any pending retry timer.
func (cm *ConnectionManager) Connect(connectionData map[string]string) error {
	if !cm.started.Load() {
		return domain.ErrNotRunning
	}
	if cm.State() == domain.StateConnected {
		return domain.ErrAlreadyConnected
	}
	cm.post(func() {
		cm.shouldReconnect = true
		cm.reconnectAttempts = 0
		cm.cancelReconnectTimer()
		cm.doConnect(cm.runCtx, connectionData)
	})
	return nil
}

// Disconnect closes the channel and cancels any pending reconnection. It is
// the single cancellation entry point and is idempotent.
func (cm *ConnectionManager) Disconnect() {
	if !cm.started.Load() {
		return
	}
	cm.post(func() { cm.doDisconnect(cm.runCtx) })
}

// Send wraps payload as a Message and transmits it immediately when
// connected, queuing it otherwise. It never blocks the caller beyond the
// enqueue itself.
func (cm *ConnectionManager) Send(payload map[string]any) error {
	if !cm.started.Load() {
		return domain.ErrNotRunning
	}
	msgType := domain.MessageTypeUnknown
	if t, ok := payload["type"].(string); ok && t != "" {
		msgType = t
	}
	msg := domain.NewMessage(msgType, payload).WithID(uuid.NewString())
	delete(msg.Payload, "type")

	cm.post(func() { cm.doSend(cm.runCtx, msg) })
	return nil
}

// RegisterPlugin adds a plugin to the dispatch chain.
func (cm *ConnectionManager) RegisterPlugin(ctx context.Context, p domain.Plugin) error {
	return cm.registry.Register(ctx, p)
}

// UnregisterPlugin removes a plugin by name and disposes it.
func (cm *ConnectionManager) UnregisterPlugin(ctx context.Context, name string) {
	cm.registry.Unregister(ctx, name)
}

func (cm *ConnectionManager) post(fn func()) {
	select {
	case cm.commands <- fn:
	case <-cm.runCtx.Done():
	}
}

func (cm *ConnectionManager) run(ctx context.Context) {
	defer close(cm.runDone)

	ticker := time.NewTicker(cm.settings.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cm.doDisconnect(context.Background())
			return
		case fn := <-cm.commands:
			fn()
		case <-ticker.C:
			// Ticks while disconnected are no-ops; the ticker itself is
			// never stopped mid-run.
			cm.heartbeatTick(ctx)
		}
	}
}

func (cm *ConnectionManager) setState(s domain.ConnectionState) {
	cm.state = s
	cm.stateVal.Store(int32(s))
	metrics.SetConnectionState(float64(s))
}

// --- connect / disconnect -------------------------------------------------

func (cm *ConnectionManager) doConnect(ctx context.Context, connectionData map[string]string) {
	if cm.state == domain.StateConnected || cm.state == domain.StateConnecting {
		return
	}
	cm.setState(domain.StateConnecting)
	cm.ports.Notifier.NotifyStatus(ctx, "Connecting")

	connID := uuid.NewString()
	connCtx, connCancel := context.WithCancel(context.WithValue(cm.runCtx, contextkeys.ConnectionIDKey, connID))

	endpoint, err := cm.buildEndpoint(connCtx, connectionData)
	if err != nil {
		connCancel()
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindService, "connect", err))
		cm.handleConnectFailure(ctx)
		return
	}
	cm.persistConnectionData(connCtx, connectionData)

	dialCtx, dialCancel := context.WithTimeout(connCtx, cm.settings.DialTimeout)
	conn, err := cm.ports.Dialer.Dial(dialCtx, endpoint, nil)
	dialCancel()
	if err != nil {
		connCancel()
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindTransport, "dial", err))
		cm.handleConnectFailure(ctx)
		return
	}

	cm.conn = conn
	cm.connGen++
	cm.connCancel = connCancel
	cm.reconnectAttempts = 0
	cm.setState(domain.StateConnected)
	cm.ports.Notifier.NotifyStatus(connCtx, "Connected")
	cm.logger.Info(connCtx, "Channel connected", "remote_addr", conn.RemoteAddr())

	cm.ports.Handler.OnConnectionEstablished(connCtx)
	cm.registry.NotifyConnectionChanged(connCtx, true)
	cm.ports.Auth.OnAuthSuccess(connCtx)

	if cm.ports.Auth.RequiresAuth() {
		cm.sendAuthenticate(connCtx)
	}

	gen := cm.connGen
	safego.Execute(connCtx, cm.logger, "ConnectionReadPump", func() {
		cm.readPump(connCtx, conn, gen)
	})

	cm.beginFlush(connCtx, gen)
}

func (cm *ConnectionManager) handleConnectFailure(ctx context.Context) {
	cm.setState(domain.StateDisconnected)
	if cm.shouldReconnect {
		cm.scheduleReconnect(ctx)
	}
}

func (cm *ConnectionManager) doDisconnect(ctx context.Context) {
	cm.shouldReconnect = false
	cm.cancelReconnectTimer()

	wasConnected := cm.state == domain.StateConnected

	// Cancel the read pump before closing the socket so a close event cannot
	// re-enter the reconnection logic after an explicit stop.
	if cm.connCancel != nil {
		cm.connCancel()
		cm.connCancel = nil
	}
	if cm.conn != nil {
		if err := cm.conn.Close(domain.StatusGoingAway, "client disconnect"); err != nil {
			cm.logger.Debug(ctx, "Error closing channel on disconnect", "error", err.Error())
		}
		cm.conn = nil
	}
	cm.connGen++
	cm.flushing = false

	if cm.state != domain.StateDisconnected {
		cm.setState(domain.StateDisconnected)
		cm.ports.Notifier.NotifyStatus(ctx, "Disconnected")
	}
	if wasConnected {
		cm.ports.Handler.OnConnectionLost(ctx)
		cm.registry.NotifyConnectionChanged(ctx, false)
	}
}

func (cm *ConnectionManager) buildEndpoint(ctx context.Context, connectionData map[string]string) (string, error) {
	u, err := url.Parse(cm.settings.EndpointURL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL %q: %w", cm.settings.EndpointURL, err)
	}
	q := u.Query()
	if cm.ports.Auth.RequiresAuth() {
		params, err := cm.ports.Auth.CredentialParams(ctx)
		if err != nil {
			cm.ports.Auth.OnAuthFailure(ctx, err)
			return "", fmt.Errorf("auth credential params: %w", err)
		}
		for k, v := range params {
			q.Set(k, v)
		}
	}
	// Caller-supplied connection data wins on key collision.
	for k, v := range connectionData {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (cm *ConnectionManager) sendAuthenticate(ctx context.Context) {
	msg, err := cm.ports.Auth.AuthenticateMessage(ctx)
	if err != nil {
		cm.ports.Auth.OnAuthFailure(ctx, err)
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindAuth, "authenticate", err))
		return
	}
	if msg == nil {
		return
	}
	if err := cm.writeFrame(ctx, *msg); err != nil {
		cm.ports.Auth.OnAuthFailure(ctx, err)
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindAuth, "authenticate", err))
	}
}

// --- persistence ----------------------------------------------------------

func (cm *ConnectionManager) persistConnectionData(ctx context.Context, data map[string]string) {
	if identity, ok := data[cm.settings.IdentityField]; ok {
		if err := cm.ports.Storage.Set(ctx, statekeys.IdentityKey(cm.settings.Tag), identity); err != nil {
			cm.reportError(ctx, domain.NewConnError(domain.ErrKindService, "persist identity", err))
		}
	}
	if credential, ok := data[cm.settings.CredentialField]; ok {
		if err := cm.ports.Storage.Set(ctx, statekeys.CredentialKey(cm.settings.Tag), credential); err != nil {
			cm.reportError(ctx, domain.NewConnError(domain.ErrKindService, "persist credential", err))
		}
	}
}

// loadPersistedConnectionData re-derives connectionData for a retry from the
// storage port.
func (cm *ConnectionManager) loadPersistedConnectionData(ctx context.Context) map[string]string {
	data := make(map[string]string, 2)
	if identity, err := cm.ports.Storage.Get(ctx, statekeys.IdentityKey(cm.settings.Tag)); err == nil {
		data[cm.settings.IdentityField] = identity
	}
	if credential, err := cm.ports.Storage.Get(ctx, statekeys.CredentialKey(cm.settings.Tag)); err == nil {
		data[cm.settings.CredentialField] = credential
	}
	return data
}

// --- reconnection state machine -------------------------------------------

func (cm *ConnectionManager) handleConnClosed(ctx context.Context, gen int, cause error) {
	if gen != cm.connGen {
		// Stale event from a connection that was already replaced or
		// deliberately closed.
		return
	}
	if cm.connCancel != nil {
		cm.connCancel()
		cm.connCancel = nil
	}
	cm.conn = nil
	cm.connGen++
	cm.flushing = false

	cm.reportError(ctx, domain.NewConnError(domain.ErrKindTransport, "read", cause))
	cm.ports.Handler.OnConnectionLost(ctx)
	cm.registry.NotifyConnectionChanged(ctx, false)

	if cm.shouldReconnect {
		cm.scheduleReconnect(ctx)
	} else {
		cm.setState(domain.StateDisconnected)
	}
}

func (cm *ConnectionManager) scheduleReconnect(ctx context.Context) {
	cm.setState(domain.StateReconnecting)
	cm.reconnectAttempts++
	attempt := cm.reconnectAttempts

	if cm.settings.MaxReconnectAttempts <= 0 || attempt > cm.settings.MaxReconnectAttempts {
		cm.shouldReconnect = false
		cm.setState(domain.StateFailed)
		cm.ports.Notifier.NotifyStatus(ctx, "Failed")
		cm.ports.Lifecycle.OnReconnectFailed(ctx, attempt-1)
		return
	}

	delay := backoffDelay(attempt, cm.settings.InitialBackoff, cm.settings.MaxBackoff)
	metrics.IncrementReconnectAttempts()
	cm.ports.Notifier.NotifyStatus(ctx, fmt.Sprintf("Reconnecting (attempt %d in %s)", attempt, delay))
	cm.ports.Lifecycle.OnReconnectScheduled(ctx, attempt, delay)

	// Only one reconnect timer may ever be pending: arming a new one
	// invalidates whatever was scheduled before.
	cm.cancelReconnectTimer()
	gen := cm.timerGen
	cm.reconnectTimer = time.AfterFunc(delay, func() {
		cm.post(func() {
			if gen != cm.timerGen {
				return
			}
			cm.reconnectTimer = nil
			data := cm.loadPersistedConnectionData(cm.runCtx)
			cm.doConnect(cm.runCtx, data)
		})
	})
}

func (cm *ConnectionManager) cancelReconnectTimer() {
	cm.timerGen++
	if cm.reconnectTimer != nil {
		cm.reconnectTimer.Stop()
		cm.reconnectTimer = nil
	}
}

// --- outbound path --------------------------------------------------------

func (cm *ConnectionManager) doSend(ctx context.Context, msg domain.Message) {
	// Direct writes are allowed only when nothing is queued. During a flush,
	// or after a failed write left older messages queued, new sends are
	// appended so messages never go out ahead of earlier ones.
	if cm.state == domain.StateConnected && !cm.flushing && cm.queue.Len() == 0 {
		if err := cm.writeFrame(ctx, msg); err != nil {
			cm.reportError(ctx, domain.NewConnError(domain.ErrKindSend, "send", err))
			cm.enqueue(ctx, msg)
			cm.resumeFlush(ctx)
		}
		return
	}
	cm.enqueue(ctx, msg)
	if cm.state == domain.StateConnected && !cm.flushing {
		cm.resumeFlush(ctx)
	}
}

// resumeFlush restarts the paced drain when messages are queued on a live
// connection, giving the transport one pacing interval to recover first.
func (cm *ConnectionManager) resumeFlush(ctx context.Context) {
	if cm.state != domain.StateConnected || cm.flushing || cm.queue.Len() == 0 {
		return
	}
	cm.flushing = true
	gen := cm.connGen
	time.AfterFunc(cm.settings.FlushInterval, func() {
		cm.post(func() { cm.flushNext(ctx, gen) })
	})
}

func (cm *ConnectionManager) enqueue(ctx context.Context, msg domain.Message) {
	if dropped, didDrop := cm.queue.PushBack(msg); didDrop {
		metrics.IncrementMessagesDropped("queue_overflow")
		cm.logger.Warn(ctx, "Send queue full, dropped oldest message", "dropped_type", dropped.Type, "dropped_id", dropped.ID)
	}
	metrics.SetQueueDepth(float64(cm.queue.Len()))
}

func (cm *ConnectionManager) writeFrame(ctx context.Context, msg domain.Message) error {
	if cm.conn == nil {
		return fmt.Errorf("no active connection")
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, cm.settings.WriteTimeout)
	defer cancel()
	if err := cm.conn.Write(writeCtx, data); err != nil {
		return err
	}
	metrics.IncrementMessagesSent(msg.Type)
	return nil
}

// beginFlush drains the queue strictly in FIFO order after a successful
// (re)connection, one message per FlushInterval. The pacing is a deliberate
// throttle so a reconnect does not hit the server with a burst.
func (cm *ConnectionManager) beginFlush(ctx context.Context, gen int) {
	if cm.queue.Len() == 0 {
		return
	}
	cm.flushing = true
	cm.logger.Info(ctx, "Flushing queued messages", "queued", cm.queue.Len())
	cm.flushNext(ctx, gen)
}

func (cm *ConnectionManager) flushNext(ctx context.Context, gen int) {
	if gen != cm.connGen || cm.state != domain.StateConnected {
		cm.flushing = false
		return
	}
	msg, ok := cm.queue.PopFront()
	if !ok {
		cm.flushing = false
		return
	}
	if err := cm.writeFrame(ctx, msg); err != nil {
		// Push the failed message back to the front and retry after the
		// pacing interval: order is preserved, nothing is skipped. If the
		// connection is actually dead its close event bumps the generation
		// and ends the chain.
		cm.queue.PushFront(msg)
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindSend, "flush", err))
		metrics.SetQueueDepth(float64(cm.queue.Len()))
		time.AfterFunc(cm.settings.FlushInterval, func() {
			cm.post(func() { cm.flushNext(ctx, gen) })
		})
		return
	}
	metrics.SetQueueDepth(float64(cm.queue.Len()))
	if cm.queue.Len() == 0 {
		cm.flushing = false
		return
	}
	time.AfterFunc(cm.settings.FlushInterval, func() {
		cm.post(func() { cm.flushNext(ctx, gen) })
	})
}

// --- heartbeat ------------------------------------------------------------

func (cm *ConnectionManager) heartbeatTick(ctx context.Context) {
	if cm.state != domain.StateConnected {
		return
	}
	probe := cm.ports.Heartbeat.ProbeMessage()
	if err := cm.writeFrame(ctx, probe); err != nil {
		// A dropped heartbeat write does not kill a still-healthy socket;
		// reconnection is driven only by transport-level close events.
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindSend, "heartbeat", err))
		return
	}
	metrics.IncrementHeartbeatsSent()
}

// --- inbound path ---------------------------------------------------------

func (cm *ConnectionManager) readPump(ctx context.Context, conn domain.Conn, gen int) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				cm.post(func() { cm.handleConnClosed(cm.runCtx, gen, err) })
			}
			return
		}
		frame := data
		cm.post(func() { cm.dispatchInbound(ctx, gen, frame) })
	}
}

func (cm *ConnectionManager) dispatchInbound(ctx context.Context, gen int, data []byte) {
	if gen != cm.connGen {
		return
	}
	msg, err := domain.DecodeMessage(data)
	if err != nil {
		cm.reportError(ctx, domain.NewConnError(domain.ErrKindDecode, "decode", err))
	}
	metrics.IncrementMessagesReceived(msg.Type)

	if cm.ports.Heartbeat.IsProbeResponse(msg) {
		cm.ports.Heartbeat.HandleProbeResponse(msg)
		return
	}

	if !cm.registry.Dispatch(ctx, msg) {
		cm.ports.Handler.OnMessage(ctx, msg)
	}

	// The foreground observer sees every non-heartbeat message regardless of
	// which handler consumed it. Forwarder implementations are fire-and-forget
	// and never block dispatch.
	cm.ports.Forwarder.ForwardInbound(ctx, msg)
}

func (cm *ConnectionManager) reportError(ctx context.Context, err *domain.ConnError) {
	cm.ports.Errors.HandleError(ctx, err)
}
