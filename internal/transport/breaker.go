package transport

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = time.Minute
)

// newBreaker trips after consecutive provider failures and publishes its
// state to metrics.
func newBreaker[T any](provider string, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	metrics.SetBreakerState(provider, int(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
			metrics.SetBreakerState(name, int(to))
		},
	})
}
