// Package observability defines Prometheus metrics for the decision
// engine, the store, the tracker and snapshot reloads, and exposes them
// alongside a liveness/readiness endpoint over chi. The collectors are
// registered and served on /metrics, but no package in this repository
// records into them (ObserveDecision has no caller), so every series
// stays at zero. Grounded on the reference
// cartography project's internal/metrics/metrics.go (promauto metric
// registration style) and internal/api/chi_router.go (route grouping,
// health endpoints under their own chi.Router).
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts decide() calls by their final Result string.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_decisions_total",
			Help: "Total number of decide() calls by result",
		},
		[]string{"result"},
	)

	// DecisionDuration measures decide() latency.
	DecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polkitgo_decision_duration_seconds",
			Help:    "Duration of decide() calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StoreAppendsTotal counts store.Append calls by scope.
	StoreAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_store_appends_total",
			Help: "Total number of authorization store appends by scope",
		},
		[]string{"scope"},
	)

	// StoreRevokesTotal counts store.Revoke calls by scope.
	StoreRevokesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_store_revokes_total",
			Help: "Total number of authorization store revocations by scope",
		},
		[]string{"scope"},
	)

	// TrackerCacheHits counts tracker lookups served from cache.
	TrackerCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_tracker_cache_hits_total",
			Help: "Total number of tracker lookups served from cache",
		},
		[]string{"index"},
	)

	// TrackerCacheMisses counts tracker lookups that required a
	// collaborator round-trip.
	TrackerCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_tracker_cache_misses_total",
			Help: "Total number of tracker lookups that missed cache",
		},
		[]string{"index"},
	)

	// PolicyReloadsTotal counts successful policy/override/store reloads
	// triggered by the fsnotify watcher.
	PolicyReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkitgo_reloads_total",
			Help: "Total number of successful snapshot reloads by source",
		},
		[]string{"source"},
	)
)

// ObserveDecision records a completed decide() call.
func ObserveDecision(result string, duration time.Duration) {
	DecisionsTotal.WithLabelValues(result).Inc()
	DecisionDuration.Observe(duration.Seconds())
}
