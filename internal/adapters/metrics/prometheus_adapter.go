package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionStateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcs_connection_state",
			Help: "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=failed).",
		},
	)
	reconnectAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dcs_reconnect_attempts_total",
			Help: "Total number of reconnection attempts scheduled.",
		},
	)
	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcs_messages_sent_total",
			Help: "Total messages written to the channel, by message type.",
		},
		[]string{"type"},
	)
	messagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcs_messages_received_total",
			Help: "Total messages received from the channel, by message type.",
		},
		[]string{"type"},
	)
	messagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcs_messages_dropped_total",
			Help: "Total messages dropped, by reason.",
		},
		[]string{"reason"},
	)
	queueDepthGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcs_send_queue_depth",
			Help: "Number of messages currently awaiting transmission.",
		},
	)
	heartbeatsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dcs_heartbeats_sent_total",
			Help: "Total heartbeat probes written to the channel.",
		},
	)
)

// SetConnectionState records the numeric connection state.
func SetConnectionState(state float64) {
	connectionStateGauge.Set(state)
}

// IncrementReconnectAttempts counts one scheduled reconnection attempt.
func IncrementReconnectAttempts() {
	reconnectAttemptsTotal.Inc()
}

// IncrementMessagesSent counts one outbound message of the given type.
func IncrementMessagesSent(msgType string) {
	messagesSentTotal.WithLabelValues(msgType).Inc()
}

// IncrementMessagesReceived counts one inbound message of the given type.
func IncrementMessagesReceived(msgType string) {
	messagesReceivedTotal.WithLabelValues(msgType).Inc()
}

// IncrementMessagesDropped counts one dropped message with its reason.
func IncrementMessagesDropped(reason string) {
	messagesDroppedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth records the current send queue depth.
func SetQueueDepth(depth float64) {
	queueDepthGauge.Set(depth)
}

// IncrementHeartbeatsSent counts one transmitted heartbeat probe.
func IncrementHeartbeatsSent() {
	heartbeatsSentTotal.Inc()
}
