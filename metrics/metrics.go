// Package metrics provides Prometheus metrics for the drug database browser:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//     for the browse server
//   - drugdb_upstream_requests_total and drugdb_upstream_request_duration_seconds
//     for calls to the drug REST API
//   - drugdb_cache_* for the query cache
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (clients seen since last cleanup)",
		},
	)

	UpstreamRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugdb_upstream_requests_total",
			Help: "Requests sent to the drug REST API",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drugdb_upstream_request_duration_seconds",
			Help:    "Latency of requests to the drug REST API",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugdb_cache_lookups_total",
			Help: "Query cache lookups by resource and result (hit, miss, shared)",
		},
		[]string{"resource", "result"},
	)

	CacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugdb_cache_invalidations_total",
			Help: "Query cache entries marked stale",
		},
		[]string{"resource"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drugdb_cache_entries",
			Help: "Entries currently held by the query cache",
		},
	)

	MutationTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugdb_mutations_total",
			Help: "Mutations run through the query client",
		},
		[]string{"mutation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(UpstreamRequestTotals)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(CacheInvalidations)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(MutationTotals)
}

// ObserveUpstream records one call to the drug REST API
func ObserveUpstream(operation, outcome string, elapsed time.Duration) {
	UpstreamRequestTotals.WithLabelValues(operation, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
