package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "blood_request_is_token_revoked_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for revoked tokens
const revokedTokenKeyPrefix = "trl:jti:"

type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevocationStore is the signed-out token denylist shared by every API
// instance. Keys expire with the token they revoke.
type RedisRevocationStore struct {
	client redisClient
	cb     *gobreaker.CircuitBreaker
}

var _ ports.TokenRevocationStore = (*RedisRevocationStore)(nil)

func NewRedisRevocationStore(client redisClient) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		cb:     config.NewCircuitBreaker(config.BreakerRedisAuth),
	}
}

// Revoke stores a marker for jti. A non-positive ttl means the token has
// already expired and nothing is written.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
	})
	if err != nil {
		return domain.WrapError(err, domain.CodeTransient, "token store unavailable")
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	n, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, revokedTokenKeyPrefix+jti).Result()
	})
	if err != nil {
		return false, domain.WrapError(err, domain.CodeTransient, "token store unavailable")
	}
	return n.(int64) > 0, nil
}
