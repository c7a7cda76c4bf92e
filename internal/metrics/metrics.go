// Package metrics holds the Prometheus collectors of the service.
// Collectors are registered on the default registry and served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citypulse_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "citypulse_api_active_requests",
			Help: "Number of API requests in flight",
		},
	)

	// Feed views
	FeedQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_feed_queries_total",
			Help: "Feed view computations by view and outcome",
		},
		[]string{"view", "outcome"},
	)

	FeedQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citypulse_feed_query_duration_seconds",
			Help:    "Feed view query duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"view"},
	)

	FeedResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citypulse_feed_results",
			Help:    "Number of events returned by a feed view",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"view"},
	)

	// Engagement ledger and moderation commands
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_commands_total",
			Help: "State-changing commands by name and outcome",
		},
		[]string{"command", "outcome"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "citypulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	SearchFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citypulse_search_fallbacks_total",
			Help: "Searches answered by the database text match instead of the index",
		},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_cache_hits_total",
			Help: "Cache hits by key family",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_cache_misses_total",
			Help: "Cache misses by key family",
		},
		[]string{"cache"},
	)

	// Audit
	AuditPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_audit_published_total",
			Help: "Audit records published by subject and outcome",
		},
		[]string{"subject", "outcome"},
	)

	AuditConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_audit_consumed_total",
			Help: "Audit records handled by consumers by subject and outcome",
		},
		[]string{"subject", "outcome"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFeedQuery records one view computation
func RecordFeedQuery(view string, results int, duration time.Duration, err error) {
	FeedQueriesTotal.WithLabelValues(view, outcome(err)).Inc()
	FeedQueryDuration.WithLabelValues(view).Observe(duration.Seconds())
	if err == nil {
		FeedResults.WithLabelValues(view).Observe(float64(results))
	}
}

func RecordCommand(command string, err error) {
	CommandsTotal.WithLabelValues(command, outcome(err)).Inc()
}

func RecordCache(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

func RecordAuditPublish(subject string, err error) {
	AuditPublished.WithLabelValues(subject, outcome(err)).Inc()
}

func RecordAuditConsumed(subject string, err error) {
	AuditConsumed.WithLabelValues(subject, outcome(err)).Inc()
}
