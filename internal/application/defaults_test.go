package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	require.NoError(t, s.Set(ctx, "identity", "alice"))
	val, err := s.Get(ctx, "identity")
	require.NoError(t, err)
	assert.Equal(t, "alice", val)

	require.NoError(t, s.Delete(ctx, "identity"))
	_, err = s.Get(ctx, "identity")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete(ctx, "never-set"))
}

func TestJSONHeartbeat(t *testing.T) {
	h := NewJSONHeartbeat()

	probe := h.ProbeMessage()
	assert.Equal(t, domain.MessageTypeHeartbeat, probe.Type)

	assert.True(t, h.IsProbeResponse(domain.NewMessage(domain.MessageTypeHeartbeatResponse, nil)))
	assert.True(t, h.IsProbeResponse(domain.NewMessage(domain.MessageTypePong, nil)))
	assert.False(t, h.IsProbeResponse(domain.NewMessage("chat_message", nil)))

	assert.True(t, h.LastResponse().IsZero())
	h.HandleProbeResponse(domain.NewMessage(domain.MessageTypePong, nil))
	assert.False(t, h.LastResponse().IsZero())
}

func TestStaticAuthProvider(t *testing.T) {
	ctx := context.Background()

	empty := &StaticAuthProvider{}
	assert.False(t, empty.RequiresAuth())

	p := &StaticAuthProvider{Params: map[string]string{"api_key": "k"}}
	assert.True(t, p.RequiresAuth())

	params, err := p.CredentialParams(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k", params["api_key"])

	// The returned map is a copy; mutating it must not affect the provider.
	params["api_key"] = "tampered"
	again, err := p.CredentialParams(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k", again["api_key"])

	msg, err := p.AuthenticateMessage(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, domain.MessageTypeAuthenticate, msg.Type)
	assert.Equal(t, "k", msg.Payload["api_key"])
}

func TestChannelForwarderDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	f := NewChannelForwarder(nopLogger{}, 1)

	f.ForwardInbound(ctx, domain.NewMessage("first", nil))
	// Buffer full: the second message is dropped, not blocked on.
	f.ForwardInbound(ctx, domain.NewMessage("second", nil))

	msg := <-f.Messages()
	assert.Equal(t, "first", msg.Type)
	select {
	case extra := <-f.Messages():
		t.Fatalf("expected second message dropped, got %s", extra.Type)
	default:
	}
}
