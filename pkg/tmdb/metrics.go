package tmdb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for TMDB client operations.
var (
	tmdbRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_requests_total",
		Help: "Total TMDB requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tmdbRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmdb_request_duration_seconds",
		Help:    "TMDB request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	tmdbErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_errors_total",
		Help: "Total TMDB errors by class",
	}, []string{"class"})

	tmdbRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	tmdbRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmdb_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	tmdbRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	tmdbCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tmdb_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	tmdbStaleServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmdb_stale_served_total",
		Help: "Total responses served from a stale cache entry after an upstream failure",
	})

	tmdbCollapsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmdb_collapsed_requests_total",
		Help: "Total page requests answered by an in-flight identical request",
	})
)
