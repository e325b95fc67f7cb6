package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/testutil/fakes"
)

func TestRedisRevocationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token is reported until it expires", func(t *testing.T) {
		now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		client := fakes.NewRedisClient().WithClock(func() time.Time { return now })
		store := NewRedisRevocationStore(client)

		require.NoError(t, store.Revoke(ctx, "jti-1", time.Hour))
		assert.True(t, client.HasKey("trl:jti:jti-1"))
		assert.Equal(t, time.Hour, client.TTL("trl:jti:jti-1"))

		revoked, err := store.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(time.Hour)
		revoked, err = store.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty jti and expired ttl are ignored", func(t *testing.T) {
		client := fakes.NewRedisClient()
		store := NewRedisRevocationStore(client)

		require.NoError(t, store.Revoke(ctx, "", time.Hour))
		require.NoError(t, store.Revoke(ctx, "old", -time.Second))
		assert.False(t, client.HasKey("trl:jti:old"))

		revoked, err := store.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("redis failures are transient", func(t *testing.T) {
		client := fakes.NewRedisClient()
		client.SetError = errors.New("connection refused")
		client.ExistsError = errors.New("connection refused")
		store := NewRedisRevocationStore(client)

		err := store.Revoke(ctx, "jti-2", time.Hour)
		assert.True(t, domain.HasCode(err, domain.CodeTransient))

		_, err = store.IsRevoked(ctx, "jti-2")
		assert.True(t, domain.HasCode(err, domain.CodeTransient))
	})
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "a", time.Minute))
	revoked, _ := store.IsRevoked(ctx, "a")
	assert.True(t, revoked)

	revoked, _ = store.IsRevoked(ctx, "b")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "a")
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "c", time.Minute))
	assert.NotContains(t, store.revoked, "a")
}
