package backend

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/metrics"
	"github.com/im-vishesh15th/bookmind/internal/otel"
)

// BreakerSettings tunes the circuit breaker around backend calls.
type BreakerSettings struct {
	Name string
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the closed-state counts. Zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MinRequests and FailureRatio decide when a closed breaker trips.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings trips after 5 requests in a minute with >= 60%
// failures and probes again after 15 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "backend",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      15 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

func newBreaker(s BreakerSettings, events *otel.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.BreakerState.WithLabelValues(s.Name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		// 4xx answers mean the backend is healthy, and a caller giving up
		// is not the backend's fault. Transport errors and 5xx count.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
			events.Emit(otel.Event{
				Level: otel.LevelWarn,
				Kind:  otel.KindBreakerState,
				Comp:  "backend",
				Msg:   from.String() + " -> " + to.String(),
				Extra: map[string]any{"name": name},
			})
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// IsBreakerOpen reports whether err means the breaker refused the call.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
