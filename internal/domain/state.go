package domain

// ConnectionState describes the manager's position in the connection
// lifecycle. A manager owns exactly one logical connection at a time and moves
// Disconnected -> Connecting -> Connected -> Reconnecting, ending in Failed
// once reconnection attempts are exhausted.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}
