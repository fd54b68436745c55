package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Fatal(context.Context, string, ...any) {}
func (l nopLogger) With(...any) domain.Logger           { return l }

// echoServer accepts one WebSocket upgrade and echoes every text frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()
		for {
			typ, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			if err := c.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialAndEcho(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := NewDialerAdapter(nopLogger{})
	conn, err := d.Dial(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close(domain.StatusGoingAway, "test done")

	payload := []byte(`{"type":"heartbeat"}`)
	require.NoError(t, conn.Write(ctx, payload))

	echoed, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, echoed)
}

func TestDialFailure(t *testing.T) {
	server := echoServer(t)
	server.Close() // nothing listening anymore

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	d := NewDialerAdapter(nopLogger{})
	_, err := d.Dial(ctx, wsURL(server), nil)
	assert.Error(t, err)
}

func TestDialPassesHeaders(t *testing.T) {
	headerSeen := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerSeen <- r.Header.Get("X-Client-Tag")
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := NewDialerAdapter(nopLogger{})
	header := http.Header{}
	header.Set("X-Client-Tag", "test-tag")
	conn, err := d.Dial(ctx, wsURL(server), header)
	require.NoError(t, err)
	defer conn.Close(domain.StatusGoingAway, "test done")

	select {
	case got := <-headerSeen:
		assert.Equal(t, "test-tag", got)
	case <-ctx.Done():
		t.Fatal("server never saw the upgrade request")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := NewDialerAdapter(nopLogger{})
	conn, err := d.Dial(ctx, wsURL(server), nil)
	require.NoError(t, err)

	require.NoError(t, conn.Close(domain.StatusGoingAway, "first"))
	assert.NoError(t, conn.Close(domain.StatusGoingAway, "second"))
}

func TestWriteAfterCloseFails(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := NewDialerAdapter(nopLogger{})
	conn, err := d.Dial(ctx, wsURL(server), nil)
	require.NoError(t, err)

	require.NoError(t, conn.Close(domain.StatusGoingAway, "done"))
	assert.Error(t, conn.Write(ctx, []byte("too late")))
}

func TestRemoteAddrReportsEndpoint(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint := wsURL(server)
	d := NewDialerAdapter(nopLogger{})
	conn, err := d.Dial(ctx, endpoint, nil)
	require.NoError(t, err)
	defer conn.Close(domain.StatusGoingAway, "test done")

	assert.Equal(t, endpoint, conn.RemoteAddr())
}
