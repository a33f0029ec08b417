package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// Resolution outcomes
const (
	OutcomeResolved   = "resolved"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid_input"
	OutcomeStoreFault = "store_fault"
)

var (
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_spotter_resolutions_total",
			Help: "Aircraft focus resolutions by registry and outcome",
		},
		[]string{"registry", "outcome"},
	)

	// DegradedLookups counts enrichment calls that failed and were replaced by a default
	DegradedLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_spotter_degraded_lookups_total",
			Help: "External lookups absorbed into a default value",
		},
		[]string{"source"}, // source: "live_state", "photo"
	)

	PhotoCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flight_spotter_photo_cache_hits_total",
			Help: "Photo lookups answered from the cache",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flight_spotter_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_spotter_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_spotter_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flight_spotter_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	DatasetSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_spotter_dataset_syncs_total",
			Help: "Reference dataset sync runs by result",
		},
		[]string{"result"}, // result: "downloaded", "fresh", "error"
	)
)

func RecordResolution(registry, outcome string) {
	Resolutions.WithLabelValues(registry, outcome).Inc()
}

func RecordDegraded(source string) {
	DegradedLookups.WithLabelValues(source).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// BreakerStateValue maps a breaker state onto the gauge encoding
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
