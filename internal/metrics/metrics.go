// Package metrics declares the Prometheus collectors shared by both binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed, labeled by route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_panics_recovered_total",
		Help: "Handler panics recovered by the middleware",
	})

	PaymentIntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_intents_total",
		Help: "Payment intent attempts, labeled by result",
	}, []string{"result"})

	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhooks_total",
		Help: "Gateway webhooks handled, labeled by outcome",
	}, []string{"outcome"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_gateway_request_duration_seconds",
		Help:    "Latency of outbound charge requests, labeled by result",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification deliveries, labeled by kind and result",
	}, []string{"kind", "result"})

	OutboxPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_outbox_published_total",
		Help: "Outbox messages handed to Kafka, labeled by result",
	}, []string{"result"})
)
