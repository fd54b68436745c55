package application

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// nopLogger satisfies domain.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Fatal(context.Context, string, ...any) {}
func (l nopLogger) With(...any) domain.Logger           { return l }

// fakeConn is an in-memory domain.Conn. Inbound frames are injected through
// the inbound channel; writes are recorded. Closing (or injecting a read
// error) unblocks the read pump.
type fakeConn struct {
	mu             sync.Mutex
	written        [][]byte
	writeErr       error
	failNextWrites int
	inbound        chan []byte
	readErr        chan error
	closed         bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		readErr: make(chan error, 1),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if c.failNextWrites > 0 {
		c.failNextWrites--
		return errors.New("transient write failure")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.written = append(c.written, buf)
	return nil
}

func (c *fakeConn) Close(_ websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	select {
	case c.readErr <- errors.New("connection closed"):
	default:
	}
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake://remote" }

func (c *fakeConn) failReads(err error) {
	select {
	case c.readErr <- err:
	default:
	}
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) setFailNextWrites(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNextWrites = n
}

func (c *fakeConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out one fakeConn per dial and records each dialed
// endpoint. Dials fail while failures > 0, each failure consuming one. onDial
// lets a test configure each new connection before the manager sees it.
type fakeDialer struct {
	mu        sync.Mutex
	conns     []*fakeConn
	endpoints []string
	failures  int
	onDial    func(*fakeConn)
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{}
}

func (d *fakeDialer) Dial(_ context.Context, endpoint string, _ http.Header) (domain.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints = append(d.endpoints, endpoint)
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	if d.onDial != nil {
		d.onDial(conn)
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) setFailures(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.endpoints)
}

func (d *fakeDialer) lastEndpoint() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.endpoints) == 0 {
		return ""
	}
	return d.endpoints[len(d.endpoints)-1]
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// recordingAuthProvider supplies fixed credentials and records auth outcomes.
// credentialsErr makes CredentialParams fail; messageErr makes
// AuthenticateMessage fail.
type recordingAuthProvider struct {
	params         map[string]string
	credentialsErr error
	messageErr     error

	mu        sync.Mutex
	successes int
	failures  []error
}

func (p *recordingAuthProvider) RequiresAuth() bool { return true }

func (p *recordingAuthProvider) CredentialParams(context.Context) (map[string]string, error) {
	if p.credentialsErr != nil {
		return nil, p.credentialsErr
	}
	return p.params, nil
}

func (p *recordingAuthProvider) AuthenticateMessage(context.Context) (*domain.Message, error) {
	if p.messageErr != nil {
		return nil, p.messageErr
	}
	msg := domain.NewMessage(domain.MessageTypeAuthenticate, nil)
	return &msg, nil
}

func (p *recordingAuthProvider) OnAuthSuccess(context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successes++
}

func (p *recordingAuthProvider) OnAuthFailure(_ context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, err)
}

func (p *recordingAuthProvider) failureCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failures)
}

// recordingNotifier captures status strings.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (n *recordingNotifier) NotifyStatus(_ context.Context, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.statuses))
	copy(out, n.statuses)
	return out
}

// recordingLifecycle captures lifecycle hook invocations.
type recordingLifecycle struct {
	mu         sync.Mutex
	scheduled  []time.Duration
	failedWith int
	failed     bool
}

func (l *recordingLifecycle) OnServiceStarted(context.Context) {}
func (l *recordingLifecycle) OnServiceStopped(context.Context) {}

func (l *recordingLifecycle) OnReconnectScheduled(_ context.Context, _ int, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scheduled = append(l.scheduled, delay)
}

func (l *recordingLifecycle) OnReconnectFailed(_ context.Context, attempts int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = true
	l.failedWith = attempts
}

func (l *recordingLifecycle) scheduledDelays() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Duration, len(l.scheduled))
	copy(out, l.scheduled)
	return out
}

func (l *recordingLifecycle) hasFailed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// recordingHandler captures unclaimed messages and connection callbacks.
type recordingHandler struct {
	mu          sync.Mutex
	messages    []domain.Message
	established int
	lost        int
}

func (h *recordingHandler) OnMessage(_ context.Context, msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) OnConnectionEstablished(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.established++
}

func (h *recordingHandler) OnConnectionLost(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lost++
}

func (h *recordingHandler) received() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *recordingHandler) establishedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.established
}

// recordingErrorHandler captures classified errors.
type recordingErrorHandler struct {
	mu   sync.Mutex
	errs []*domain.ConnError
}

func (h *recordingErrorHandler) HandleError(_ context.Context, err *domain.ConnError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingErrorHandler) kinds() []domain.ErrorKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.ErrorKind, 0, len(h.errs))
	for _, e := range h.errs {
		out = append(out, e.Kind)
	}
	return out
}

// testPlugin is a configurable domain.Plugin.
type testPlugin struct {
	name        string
	types       []string
	consume     bool
	initErr     error
	mu          sync.Mutex
	handled     []domain.Message
	disposed    bool
	initialized bool
	connEvents  []bool
}

func (p *testPlugin) Name() string                    { return p.name }
func (p *testPlugin) SupportedMessageTypes() []string { return p.types }

func (p *testPlugin) HandleMessage(_ context.Context, msg domain.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handled = append(p.handled, msg)
	return p.consume
}

func (p *testPlugin) OnConnectionChanged(_ context.Context, connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connEvents = append(p.connEvents, connected)
}

func (p *testPlugin) OnServiceStarted(context.Context) {}
func (p *testPlugin) OnServiceStopped(context.Context) {}

func (p *testPlugin) Initialize(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = true
	return p.initErr
}

func (p *testPlugin) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposed = true
}

func (p *testPlugin) handledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handled)
}

func (p *testPlugin) isDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}
