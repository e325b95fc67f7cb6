package config

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

// Breaker names shared by adapters and health checks.
const (
	BreakerRedisAuth     = "Redis-Auth"
	BreakerPostgres      = "PostgreSQL"
	BreakerRelayPostgres = "Relay-PostgreSQL"
	BreakerRabbitMQ      = "RabbitMQ"
	BreakerTelegram      = "Telegram"
)

// NewCircuitBreaker creates a circuit breaker with standard settings.
// The name parameter uniquely identifies the circuit breaker instance.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     breakerTimeout(name),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit after 3 consecutive failures
			return counts.ConsecutiveFailures >= 3
		},
		// Domain rule violations do not count as failures.
		IsSuccessful: func(err error) bool {
			return err == nil || (domain.IsDomainError(err) && !domain.Retryable(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Error("[CRITICAL] circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// Timeouts align with the 5s health check so a probe never races a half-open breaker.
func breakerTimeout(name string) time.Duration {
	switch name {
	case BreakerRedisAuth:
		return time.Second * 5
	case BreakerPostgres, BreakerRelayPostgres:
		return time.Second * 10
	default:
		return time.Second * 30
	}
}
