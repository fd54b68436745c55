package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known message types used by the connection manager itself. Everything
// else is routed through the plugin registry and the default message handler.
const (
	MessageTypeUnknown           = "unknown"
	MessageTypeAuthenticate      = "authenticate"
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypeHeartbeatResponse = "heartbeat_response"
	MessageTypePong              = "pong"
)

// Reserved envelope keys injected into (and stripped from) the wire frame.
const (
	frameKeyType      = "type"
	frameKeyTimestamp = "timestamp"
	frameKeyID        = "id"
)

// Message is the immutable envelope exchanged over the channel. Type is the
// routing discriminator and is never empty; decoding a malformed frame yields
// a Message of type "unknown" rather than an unusable value. Payload holds the
// structured body and round-trips through serialization unchanged except for
// the injected type/timestamp/id keys.
type Message struct {
	Type      string
	Payload   map[string]any
	Timestamp time.Time
	ID        string
}

// NewMessage constructs a Message of the given type, stamping it with the
// current time. The payload map is copied so later mutation by the caller
// cannot leak into an already-constructed envelope.
func NewMessage(msgType string, payload map[string]any) Message {
	if msgType == "" {
		msgType = MessageTypeUnknown
	}
	return Message{
		Type:      msgType,
		Payload:   copyPayload(payload),
		Timestamp: time.Now().UTC(),
	}
}

// WithID returns a copy of the message carrying the given correlation ID.
func (m Message) WithID(id string) Message {
	m.ID = id
	return m
}

// Encode serializes the message to a single JSON text frame. The frame body is
// the payload merged with the injected type/timestamp/id keys; envelope keys
// win on collision so a payload cannot spoof its own routing type.
func (m Message) Encode() ([]byte, error) {
	frame := make(map[string]any, len(m.Payload)+3)
	for k, v := range m.Payload {
		frame[k] = v
	}
	frame[frameKeyType] = m.Type
	frame[frameKeyTimestamp] = m.Timestamp.UTC().Format(time.RFC3339Nano)
	if m.ID != "" {
		frame[frameKeyID] = m.ID
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message frame: %w", err)
	}
	return data, nil
}

// DecodeMessage parses one inbound text frame. It never fails hard: a frame
// that is not a JSON object produces a Message of type "unknown" alongside the
// decode error, so the caller can report the error without dropping the
// connection. A missing timestamp defaults to the receive time.
func DecodeMessage(data []byte) (Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{
			Type:      MessageTypeUnknown,
			Payload:   map[string]any{},
			Timestamp: time.Now().UTC(),
		}, fmt.Errorf("failed to decode message frame: %w", err)
	}

	msg := Message{
		Type:      MessageTypeUnknown,
		Payload:   make(map[string]any, len(raw)),
		Timestamp: time.Now().UTC(),
	}
	for k, v := range raw {
		switch k {
		case frameKeyType, frameKeyTimestamp, frameKeyID:
			// Envelope keys are lifted out of the payload below.
		default:
			msg.Payload[k] = v
		}
	}

	if t, ok := raw[frameKeyType].(string); ok && t != "" {
		msg.Type = t
	}
	if id, ok := raw[frameKeyID].(string); ok {
		msg.ID = id
	}
	switch ts := raw[frameKeyTimestamp].(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg.Timestamp = parsed
		}
	case float64:
		// Numeric timestamps are interpreted as Unix milliseconds.
		msg.Timestamp = time.UnixMilli(int64(ts)).UTC()
	}

	return msg, nil
}

func copyPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
