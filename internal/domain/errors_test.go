package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := NewConnError(ErrKindTransport, "read", cause)

	assert.Equal(t, "transport error in read: connection reset by peer", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestConnErrorWithoutCause(t *testing.T) {
	err := NewConnError(ErrKindService, "connect", nil)
	assert.Equal(t, "service error in connect", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "invalid", ConnectionState(99).String())
}
