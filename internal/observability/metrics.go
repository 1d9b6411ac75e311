// Package observability defines the Prometheus metrics exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., surveypulse_...).
const namespace = "surveypulse"

// deliveryBuckets cover partner endpoints from fast (10ms) to the timeout range.
var deliveryBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15}

var (
	// HTTPReqDuration measures the latency of HTTP requests.
	HTTPReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// HTTPReqTotal counts HTTP requests by route and status code.
	HTTPReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "code"})

	// EvaluationsTotal counts evaluations by verdict and criteria source.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "results_total",
		Help:      "Total survey evaluations by status and criteria source",
	}, []string{"status", "source"})

	// PostbackDeliveries counts outbound postback attempts.
	PostbackDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "postback",
		Name:      "deliveries_total",
		Help:      "Total outbound postback attempts by recipient kind and outcome",
	}, []string{"kind", "outcome"})

	// PostbackDeliveryDuration measures each outbound call.
	PostbackDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "postback",
		Name:      "delivery_seconds",
		Help:      "Outbound postback call latency",
		Buckets:   deliveryBuckets,
	}, []string{"kind"})

	// InboundPostbacks counts inbound partner callbacks by HTTP-like result code.
	InboundPostbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "postback",
		Name:      "inbound_total",
		Help:      "Total inbound postback calls by result code",
	}, []string{"code"})

	// AuditDropped counts audit entries dropped because the sink buffer was full.
	AuditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "dropped_total",
		Help:      "Audit log entries dropped due to a full buffer",
	})

	// CriteriaCacheHits and CriteriaCacheMisses track the L1 criteria-set cache.
	CriteriaCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "criteria_cache",
		Name:      "hits_total",
		Help:      "Criteria set cache hits by tier",
	}, []string{"tier"})

	CriteriaCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "criteria_cache",
		Name:      "misses_total",
		Help:      "Criteria set lookups that reached the document store",
	})
)
