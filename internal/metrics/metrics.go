package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RoutingBackendRequests
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeRejected    = "rejected"
)

var (
	RoutingBackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_routing_backend_requests_total",
			Help: "Total number of route queries sent to each routing backend, by outcome",
		},
		[]string{"backend", "outcome"},
	)

	RoutingBackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_routing_backend_duration_seconds",
			Help:    "Duration of route queries per routing backend in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		},
		[]string{"backend"},
	)

	RoutingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_routing_fallbacks_total",
			Help: "Total number of routes synthesized from straight-line estimates",
		},
	)

	RoutingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_routing_cache_hits_total",
			Help: "Total number of routes served from the route cache",
		},
	)

	RerankFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_rerank_fallbacks_total",
			Help: "Total number of re-rank requests answered by the score-order fallback",
		},
		[]string{"reason"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "concierge_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route", "status"},
	)
)
