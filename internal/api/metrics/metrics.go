// Package metrics defines the custom Prometheus metrics of the fleet API.
// HTTP request metrics come from the echoprometheus middleware; everything
// here describes resource operations and the change-event pipeline.
//
// Metrics are registered with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleet"

// ── Resource metrics ──────────────────────────────────────────────────────────

// ResourceOperationsTotal counts resource operations by outcome.
// Labels:
//   - resource: catalog name (e.g. "services")
//   - operation: "list", "get", "create", "update", "status", "toggle", "rate", "delete", "stats"
//   - outcome: "ok" or the error code returned to the client
var ResourceOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resource_operations_total",
		Help:      "Total number of resource operations, by resource, operation and outcome.",
	},
	[]string{"resource", "operation", "outcome"},
)

// ResourceOperationDuration measures service time per operation.
var ResourceOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resource_operation_duration_seconds",
		Help:      "Duration of resource operations from handler entry to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"resource", "operation"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)

// ── Change-event metrics ──────────────────────────────────────────────────────

// EventsPublishedTotal counts change events handed to the publisher.
// Labels:
//   - action: the change action (e.g. "created")
//   - result: "ok", "error" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of change events, by action and publish result.",
	},
	[]string{"action", "result"},
)

// EventsQueueDepth tracks the events waiting in each dispatcher worker channel.
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of change events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
