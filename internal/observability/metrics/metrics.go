// Package metrics exposes prometheus instrumentation for the alerting
// pipeline: snapshot ingestion, rule triggers, dispatch and delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	SnapshotsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_snapshots_ingested_total",
			Help: "Total number of metric snapshots received",
		},
		[]string{"status"}, // status: accepted, dropped
	)

	// Rule engine metrics
	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_triggers_total",
			Help: "Total number of rule triggers",
		},
		[]string{"category", "outcome"}, // outcome: admitted, suppressed
	)

	// Dispatch metrics
	NotificationsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_notifications_dispatched_total",
			Help: "Total number of notification sends handed to providers",
		},
		[]string{"channel", "status"}, // status: accepted, rejected, queue_full
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsdeck_dispatch_queue_depth",
			Help: "Current number of queued dispatch jobs",
		},
	)

	DispatchQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsdeck_dispatch_queue_capacity",
			Help: "Capacity of the dispatch job queue",
		},
	)

	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsdeck_send_duration_seconds",
			Help:    "Time taken to hand a notification to its provider",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// Delivery lifecycle metrics
	DeliveryTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_delivery_transitions_total",
			Help: "Total number of delivery status transitions",
		},
		[]string{"from", "to"},
	)

	DeliveryCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_delivery_callbacks_total",
			Help: "Total number of provider delivery callbacks received",
		},
		[]string{"status"}, // reported status: delivered, read, bounced, failed
	)

	DeliveryRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsdeck_delivery_retries_total",
			Help: "Total number of bounced notifications re-sent",
		},
	)

	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsdeck_escalations_total",
			Help: "Total number of critical delivery failures escalated",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdeck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsdeck_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
)
