// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, matched route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compass",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "compass",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// CarryoverTiers counts carryover results by tier (clear, mild, moderate, high).
	CarryoverTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "carryover_tier_total",
			Help:      "Carryover results computed, by tier",
		},
		[]string{"tier"},
	)

	PatternsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "patterns_emitted_total",
			Help:      "Patterns returned by the detector, by type",
		},
		[]string{"type"},
	)

	// ThresholdAbstentions counts range requests that returned no range.
	// Labels: reason (insufficient_doses, insufficient_check_ins)
	ThresholdAbstentions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "threshold_abstentions_total",
			Help:      "Threshold range requests that abstained, by reason",
		},
		[]string{"reason"},
	)
)

func ObserveRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(seconds)
}
