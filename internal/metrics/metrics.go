// Package metrics holds the Prometheus collectors for bookmind.
//
// Collectors are created unregistered so tests and one-shot CLI commands can
// use them freely. Call Register once from main before serving /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookmind"

// Backend request outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeAPIError       = "api_error"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeRejected       = "rejected" // circuit breaker refused the call
)

var (
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend HTTP requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend HTTP request duration in seconds",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// StaleResponses counts async results dropped because a newer request
	// superseded them. component is "suggest" or "recommend".
	StaleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Async responses discarded because their generation was superseded",
		},
		[]string{"component"},
	)

	SuggestionPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_passes_total",
			Help:      "Debounced filtering passes that reached the backend",
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BackendRequests,
			BackendRequestDuration,
			StaleResponses,
			SuggestionPasses,
			BreakerState,
		)
	})
}

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
