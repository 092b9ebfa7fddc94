package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portalsearch"

// Search pipeline Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider searches",
		},
		[]string{"provider", "status"}, // "ok" / "error" / "timeout" / "canceled"
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	HitsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_pushed_total",
			Help:      "Hits pushed into session result lists",
		},
		[]string{"list"},
	)

	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Recommended list recomputations",
		},
		[]string{"event"},
	)

	InitialSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "initial_search_duration_seconds",
			Help:      "Time from arming an initial search until all tasks reported done",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open search sessions",
		},
	)

	HitCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hit_cache_total",
			Help:      "Provider hit cache hits and misses",
		},
		[]string{"provider", "result"}, // "hit" / "miss"
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers the HTTP and search pipeline metrics with the
// default registry. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			eventStreamDuration,
			ProviderRequestsTotal,
			ProviderRequestDuration,
			HitsPushedTotal,
			AggregationsTotal,
			InitialSearchDuration,
			ActiveSessions,
			HitCacheTotal,
			BreakerState,
		)
	})
}
