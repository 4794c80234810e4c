// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection metrics
var (
	// ActiveConnections tracks currently registered websocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Currently registered websocket connections",
		},
	)

	// ConnectionsTotal tracks connection attempts by outcome.
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_connections_total",
			Help: "Websocket connection attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Delivery metrics
var (
	// EnvelopesPublished tracks envelopes published to the bus.
	EnvelopesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_envelopes_published_total",
			Help: "Envelopes published to the message bus",
		},
	)

	// EnvelopesReceived tracks envelopes received from the bus.
	EnvelopesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_bus_envelopes_received_total",
			Help: "Envelopes received from the message bus",
		},
	)

	// EnvelopesDelivered tracks successful writes to local connections.
	EnvelopesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_envelopes_delivered_total",
			Help: "Envelopes delivered to local websocket connections",
		},
	)

	// DeliveryFailures tracks peers evicted after a failed write.
	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Local deliveries that failed and evicted the peer",
		},
	)

	// BusPublishErrors tracks failed publishes to the bus.
	BusPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_bus_publish_errors_total",
			Help: "Publishes to the message bus that failed",
		},
	)
)

// Webhook metrics
var (
	// WebhookRequests tracks inbound change notifications by outcome.
	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_requests_total",
			Help: "Inbound webhook requests by outcome",
		},
		[]string{"outcome"},
	)
)
