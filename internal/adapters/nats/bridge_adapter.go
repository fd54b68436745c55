package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/daisi-conn-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// BridgeAdapter connects the background connection manager to the foreground
// application layer over NATS. Decoded inbound messages are republished on
// "<tag>.inbound"; outbound send requests are consumed from "<tag>.outbound"
// and handed to the manager. Both directions are plain async message
// passing, never shared memory.
type BridgeAdapter struct {
	nc              *nats.Conn
	logger          domain.Logger
	subjectInbound  string
	subjectOutbound string
	outboundSub     *nats.Subscription
}

// NewBridgeAdapter connects to NATS and returns the bridge plus a cleanup
// function that drains the connection.
func NewBridgeAdapter(ctx context.Context, cfgProvider config.Provider, logger domain.Logger) (*BridgeAdapter, func(), error) {
	appCfg := cfgProvider.Get()
	tag := appCfg.Connection.Tag

	nc, err := nats.Connect(appCfg.NATS.URL,
		nats.Name(fmt.Sprintf("daisi-conn-service-%s", tag)),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(context.Background(), "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(context.Background(), "NATS disconnected", "error", err.Error())
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", appCfg.NATS.URL, err)
	}

	b := &BridgeAdapter{
		nc:              nc,
		logger:          logger,
		subjectInbound:  fmt.Sprintf("%s.inbound", tag),
		subjectOutbound: fmt.Sprintf("%s.outbound", tag),
	}
	cleanup := func() {
		if b.outboundSub != nil {
			_ = b.outboundSub.Unsubscribe()
		}
		if err := nc.Drain(); err != nil {
			logger.Warn(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
		logger.Info(context.Background(), "NATS bridge closed")
	}

	logger.Info(ctx, "Connected to NATS", "url", appCfg.NATS.URL, "inbound_subject", b.subjectInbound, "outbound_subject", b.subjectOutbound)
	return b, cleanup, nil
}

// ForwardInbound implements domain.Forwarder. Publishing to NATS is
// fire-and-forget; a publish failure is logged and never blocks dispatch.
func (b *BridgeAdapter) ForwardInbound(ctx context.Context, msg domain.Message) {
	data, err := msg.Encode()
	if err != nil {
		b.logger.Warn(ctx, "Failed to encode message for foreground relay", "type", msg.Type, "error", err.Error())
		return
	}
	if err := b.nc.Publish(b.subjectInbound, data); err != nil {
		b.logger.Warn(ctx, "Failed to relay inbound message to foreground", "type", msg.Type, "error", err.Error())
	}
}

// StartOutboundRelay subscribes to the outbound subject and hands each
// decoded payload to send (the manager's Send). Call once after the manager
// has started.
func (b *BridgeAdapter) StartOutboundRelay(ctx context.Context, send func(payload map[string]any) error) error {
	sub, err := b.nc.Subscribe(b.subjectOutbound, func(m *nats.Msg) {
		var payload map[string]any
		if err := json.Unmarshal(m.Data, &payload); err != nil {
			b.logger.Warn(context.Background(), "Malformed outbound relay payload", "error", err.Error())
			return
		}
		if err := send(payload); err != nil {
			b.logger.Warn(context.Background(), "Failed to hand outbound payload to manager", "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subjectOutbound, err)
	}
	b.outboundSub = sub
	b.logger.Info(ctx, "Outbound relay started", "subject", b.subjectOutbound)
	return nil
}

// Conn exposes the underlying NATS connection for readiness checks.
func (b *BridgeAdapter) Conn() *nats.Conn {
	return b.nc
}
