// Package metrics exposes the Prometheus registry used by cinegrid.
// All metrics are defined in their respective packages (tmdb, cache,
// ratelimit, catalog) with promauto and land in the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by cinegrid.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - tmdb_rate_limit_remaining (Gauge): Last reported X-RateLimit-Remaining
//   - tmdb_rate_limit_cooldowns_total (Counter): 429 cooldowns started
//   - tmdb_rate_limit_blocks_total (Counter): Requests blocked during a cooldown
//   - tmdb_rate_limit_throttles_total (Counter): Requests delayed on a low budget
//
// Cache Metrics (pkg/cache):
//   - tmdb_cache_hits_total{state="fresh|stale"} (Counter): Cache hits by freshness
//   - tmdb_cache_misses_total (Counter): Cache misses
//   - tmdb_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - tmdb_304_responses_total (Counter): 304 Not Modified revalidations
//   - tmdb_conditional_requests_total (Counter): Conditional requests sent
//   - tmdb_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/tmdb):
//   - tmdb_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome
//   - tmdb_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - tmdb_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - tmdb_retries_total{error_class} (Counter): Retry attempts by error class
//   - tmdb_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - tmdb_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//   - tmdb_circuit_breaker_state{name} (Gauge): 0=closed, 1=half-open, 2=open
//   - tmdb_stale_served_total (Counter): Stale cache entries served on upstream failure
//   - tmdb_collapsed_requests_total (Counter): Page requests served by an in-flight twin
//
// Grid Metrics (pkg/catalog):
//   - cinegrid_pages_served_total{media} (Counter): Virtual pages served
//   - cinegrid_degraded_pages_total{media} (Counter): Pages recovered as empty after an upstream error
//   - cinegrid_page_clamps_total (Counter): Requests past the last page clamped to it
//   - cinegrid_upstream_pages_per_request (Histogram): Upstream pages read per virtual page
//   - cinegrid_stale_results_dropped_total (Counter): Superseded grid loads discarded
//   - cinegrid_prefetch_pages_total{outcome} (Counter): Upstream pages warmed ahead of "Next"
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(tmdb_cache_hits_total[5m])) /
//   (sum(rate(tmdb_cache_hits_total[5m])) + sum(rate(tmdb_cache_misses_total[5m])))
//
//   # Degraded page ratio
//   sum(rate(cinegrid_degraded_pages_total[5m])) / sum(rate(cinegrid_pages_served_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(tmdb_request_duration_seconds_bucket[5m]))
//
//   # Breaker open
//   tmdb_circuit_breaker_state == 2
