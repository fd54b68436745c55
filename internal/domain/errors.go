package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a connection-manager error for routing through the
// error port. The manager's control flow never unwinds on one of these; it
// degrades to the reconnection state machine instead.
type ErrorKind string

const (
	// ErrKindTransport is a socket-level failure or unsolicited close. This is
	// the only kind that drives reconnection.
	ErrKindTransport ErrorKind = "transport"
	// ErrKindDecode is a malformed inbound frame. Logged, never fatal.
	ErrKindDecode ErrorKind = "decode"
	// ErrKindSend is a write failure; the message is requeued and the
	// connection is not assumed dead.
	ErrKindSend ErrorKind = "send"
	// ErrKindAuth is a credential rejection surfaced to the auth port.
	ErrKindAuth ErrorKind = "auth"
	// ErrKindService covers lifecycle and configuration failures.
	ErrKindService ErrorKind = "service"
)

// ConnError wraps an underlying error with its taxonomy kind and the
// operation that produced it.
type ConnError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func NewConnError(kind ErrorKind, op string, err error) *ConnError {
	return &ConnError{Kind: kind, Op: op, Err: err}
}

func (e *ConnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error in %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

var (
	// ErrAlreadyConnected is returned by Connect while a connection is live.
	ErrAlreadyConnected = errors.New("connection manager is already connected")
	// ErrNotRunning is returned by operations that need a started manager.
	ErrNotRunning = errors.New("connection manager is not running")
	// ErrStateNotFound is returned by a StateStore on a missing key.
	ErrStateNotFound = errors.New("state key not found")
)
