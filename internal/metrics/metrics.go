package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache store lookups by resource
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_cache_requests_total",
			Help: "Total number of cache store lookups",
		},
		[]string{"resource"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
		[]string{"resource", "level"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_cache_misses_total",
			Help: "Total number of cache misses, including stale entries",
		},
		[]string{"resource"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"level", "reason"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_sync_cache_entries",
			Help: "Number of entries held by a cache backend",
		},
		[]string{"level"},
	)

	CacheCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_sync_cache_capacity_bytes",
			Help: "In-memory cache capacity in bytes",
		},
		[]string{"level"},
	)

	// Coordinator fetches
	FetchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_fetch_results_total",
			Help: "Coordinated loads by outcome",
		},
		[]string{"resource", "outcome"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_fetch_errors_total",
			Help: "Failed fetches by error category",
		},
		[]string{"resource", "category"},
	)

	FetchSuperseded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_fetch_superseded_total",
			Help: "In-flight fetches cancelled by a newer request for the same key",
		},
		[]string{"resource"},
	)

	FetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_sync_fetches_in_flight",
			Help: "Number of fetches currently in flight",
		},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_sync_fetch_duration_seconds",
			Help:    "Duration of upstream fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	// Sequential batches
	BatchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sync_batch_items_total",
			Help: "Items processed by sequential batch fetches",
		},
		[]string{"batch", "status"},
	)

	// Ranking
	ActiveStrategy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_sync_active_strategy",
			Help: "Currently active ranking strategy (1 for the active id)",
		},
		[]string{"strategy"},
	)
)

// RecordCacheRequest records a cache store lookup
func RecordCacheRequest(resource string) {
	CacheRequests.WithLabelValues(resource).Inc()
}

// RecordCacheHit records a fresh hit served from the given level
func RecordCacheHit(resource, level string) {
	CacheHits.WithLabelValues(resource, level).Inc()
}

// RecordCacheMiss records a miss or stale lookup
func RecordCacheMiss(resource string) {
	CacheMisses.WithLabelValues(resource).Inc()
}

// RecordCacheError records a backend failure
func RecordCacheError(level, reason string) {
	CacheErrors.WithLabelValues(level, reason).Inc()
}

// UpdateCacheEntries sets the entry count of a backend
func UpdateCacheEntries(level string, count int) {
	CacheEntries.WithLabelValues(level).Set(float64(count))
}

// UpdateCacheCapacity sets the capacity of an in-memory backend
func UpdateCacheCapacity(level string, capacity int) {
	CacheCapacity.WithLabelValues(level).Set(float64(capacity))
}

// RecordFetchResult records the outcome of a coordinated load
func RecordFetchResult(resource, outcome string) {
	FetchResults.WithLabelValues(resource, outcome).Inc()
}

// RecordFetchError records a failed fetch by category
func RecordFetchError(resource, category string) {
	FetchErrors.WithLabelValues(resource, category).Inc()
}

// RecordSuperseded records a fetch cancelled by a newer one
func RecordSuperseded(resource string) {
	FetchSuperseded.WithLabelValues(resource).Inc()
}

// IncInFlight marks a fetch as started and returns the matching decrement
func IncInFlight() func() {
	FetchesInFlight.Inc()
	return FetchesInFlight.Dec
}

// ObserveFetchDuration records how long an upstream fetch took
func ObserveFetchDuration(resource string, d time.Duration) {
	FetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// RecordBatchItem records a processed batch item ("ok", "error" or "stopped")
func RecordBatchItem(batch, status string) {
	BatchItems.WithLabelValues(batch, status).Inc()
}

// SetActiveStrategy flips the active strategy gauge
func SetActiveStrategy(active string, all []string) {
	for _, id := range all {
		value := 0.0
		if id == active {
			value = 1
		}
		ActiveStrategy.WithLabelValues(id).Set(value)
	}
}
