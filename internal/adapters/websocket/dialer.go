package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// DialerAdapter implements domain.Dialer over coder/websocket.
type DialerAdapter struct {
	logger domain.Logger
}

func NewDialerAdapter(logger domain.Logger) *DialerAdapter {
	return &DialerAdapter{logger: logger}
}

// Dial opens the channel to endpoint. The caller controls the dial deadline
// through ctx.
func (d *DialerAdapter) Dial(ctx context.Context, endpoint string, header http.Header) (domain.Conn, error) {
	opts := &websocket.DialOptions{}
	if header != nil {
		opts.HTTPHeader = header
	}
	wsConn, _, err := websocket.Dial(ctx, endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	d.logger.Debug(ctx, "WebSocket dialed", "endpoint", endpoint)
	return &Connection{
		wsConn:     wsConn,
		remoteAddr: endpoint,
	}, nil
}

// Connection wraps a websocket.Conn as a domain.Conn. Writes are serialized
// with a mutex; reads are only ever issued by the manager's read pump.
type Connection struct {
	mu         sync.Mutex // protects wsConn for writes and Close
	wsConn     *websocket.Conn
	remoteAddr string
}

// Read blocks until the next data frame arrives. Control frames (ping/pong)
// are handled by the library and never surface here.
func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.wsConn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("websocket read failed: %w", err)
	}
	return data, nil
}

// Write sends one text frame.
func (c *Connection) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn == nil {
		return errors.New("websocket connection is closed")
	}
	if err := c.wsConn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// Close attempts to close the connection with a status code and reason.
// Safe to call more than once.
func (c *Connection) Close(statusCode websocket.StatusCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn == nil {
		return nil
	}
	err := c.wsConn.Close(statusCode, reason)
	c.wsConn = nil
	return err
}

// RemoteAddr returns the dialed endpoint for diagnostics.
func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}
