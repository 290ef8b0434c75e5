package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by freshness
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_hits_total",
			Help: "Total number of TMDB response cache hits",
		},
		[]string{"state"}, // "fresh", "stale"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_cache_misses_total",
			Help: "Total number of TMDB response cache misses",
		},
	)

	// CacheStoredBytes tracks bytes written to the cache
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_cache_stored_bytes_total",
			Help: "Total bytes of TMDB responses written to the cache",
		},
	)

	// NotModifiedResponses tracks successful revalidations
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_304_responses_total",
			Help: "Total number of TMDB 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks revalidation attempts
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_conditional_requests_total",
			Help: "Total number of conditional requests sent to TMDB",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
