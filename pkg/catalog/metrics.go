package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinegrid_pages_served_total",
		Help: "Virtual pages served by media",
	}, []string{"media"})

	degradedPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinegrid_degraded_pages_total",
		Help: "Pages recovered as empty after an upstream error",
	}, []string{"media"})

	pageClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinegrid_page_clamps_total",
		Help: "Requests past the last page clamped to it",
	})

	upstreamPagesPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cinegrid_upstream_pages_per_request",
		Help:    "Upstream pages read per virtual page",
		Buckets: []float64{1, 2, 3, 4},
	})

	staleResultsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinegrid_stale_results_dropped_total",
		Help: "Superseded grid loads discarded",
	})

	prefetchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinegrid_prefetch_pages_total",
		Help: "Upstream pages warmed ahead of the next virtual page by outcome",
	}, []string{"outcome"})
)
