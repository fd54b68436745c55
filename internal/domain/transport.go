package domain

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

const (
	// StatusGoingAway is sent on a deliberate local disconnect.
	StatusGoingAway websocket.StatusCode = 1001
)

// Conn is one established duplex text-frame channel. The connection manager
// is the only component that ever reads from or writes to a Conn.
type Conn interface {
	// Read blocks until the next data frame arrives or the connection fails.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one text frame.
	Write(ctx context.Context, data []byte) error

	// Close attempts to close the connection with a status code and reason.
	Close(statusCode websocket.StatusCode, reason string) error

	// RemoteAddr returns the remote endpoint string for diagnostics.
	RemoteAddr() string
}

// Dialer opens the channel to the configured endpoint. The production
// implementation lives in internal/adapters/websocket.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}
