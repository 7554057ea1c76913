// Package metrics holds the prometheus collectors of the chat core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Live joined connections",
		},
	)

	AuthRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_auth_rejected_total",
			Help: "Join attempts closed with a policy code",
		},
		[]string{"reason"},
	)

	// Message metrics
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Messages written to the message store",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_message_persist_failures_total",
			Help: "Messages rejected because the store write failed",
		},
	)

	InvalidFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_invalid_frames_total",
			Help: "Inbound frames that failed to parse or validate",
		},
	)

	// Fan-out metrics
	BroadcastDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Frames queued to recipients",
		},
	)

	BroadcastDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_broadcast_dropped_total",
			Help: "Recipients that could not take a frame",
		},
		[]string{"reason"}, // "closed" or "backpressure"
	)

	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_broadcast_duration_seconds",
			Help:    "Time to fan a frame out to one room",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		},
	)
)
