package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is a minimal in-memory stand-in for the go-redis commands the
// revocation store uses.
type RedisClient struct {
	mu   sync.RWMutex
	data map[string]redisValue
	now  func() time.Time

	// Error injection
	SetError    error
	ExistsError error
	PingError   error
}

type redisValue struct {
	value     string
	expiresAt time.Time
}

func NewRedisClient() *RedisClient {
	return &RedisClient{data: make(map[string]redisValue), now: time.Now}
}

// WithClock makes expiry follow the given clock.
func (m *RedisClient) WithClock(now func() time.Time) *RedisClient {
	m.now = now
	return m
}

func (m *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx)
	if m.SetError != nil {
		cmd.SetErr(m.SetError)
		return cmd
	}

	expiresAt := time.Time{}
	if expiration > 0 {
		expiresAt = m.now().Add(expiration)
	}
	s, _ := value.(string)
	m.data[key] = redisValue{value: s, expiresAt: expiresAt}

	cmd.SetVal("OK")
	return cmd
}

func (m *RedisClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmd := redis.NewIntCmd(ctx)
	if m.ExistsError != nil {
		cmd.SetErr(m.ExistsError)
		return cmd
	}

	var count int64
	for _, key := range keys {
		if m.live(key) {
			count++
		}
	}
	cmd.SetVal(count)
	return cmd
}

func (m *RedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingError != nil {
		cmd.SetErr(m.PingError)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

// HasKey reports whether key is present and unexpired (for test assertions).
func (m *RedisClient) HasKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live(key)
}

// TTL returns the remaining lifetime of key, or zero.
func (m *RedisClient) TTL(key string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok || v.expiresAt.IsZero() {
		return 0
	}
	return v.expiresAt.Sub(m.now())
}

func (m *RedisClient) live(key string) bool {
	v, ok := m.data[key]
	if !ok {
		return false
	}
	return v.expiresAt.IsZero() || m.now().Before(v.expiresAt)
}
