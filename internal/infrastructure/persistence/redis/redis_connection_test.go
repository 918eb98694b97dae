package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/infrastructure/persistence/redis"
	"github.com/grabpic/grabpic-api/internal/infrastructure/ratelimit"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

func TestRedisConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("should connect in standalone mode", func(t *testing.T) {
		mr := miniredis.RunT(t)
		conn := redis.NewRedisConnection(&config.RedisConfig{
			Mode:      "standalone",
			Addresses: []string{mr.Addr()},
			PoolSize:  4,
		}, logger.NewNoopLogger())

		require.NoError(t, conn.Connect(ctx))
		require.NotNil(t, conn.GetClient())
		assert.NoError(t, conn.Ping(ctx))
		assert.NoError(t, conn.Connect(ctx), "second connect is a no-op")

		require.NoError(t, conn.Close())
		assert.Nil(t, conn.GetClient())
		assert.Error(t, conn.Ping(ctx))
	})

	t.Run("should keep the client when redis is down at startup", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		conn := redis.NewRedisConnection(&config.RedisConfig{
			Mode:      "standalone",
			Addresses: []string{addr},
		}, logger.NewNoopLogger())
		t.Cleanup(func() { _ = conn.Close() })

		require.NoError(t, conn.Connect(ctx))
		require.NotNil(t, conn.GetClient())
		assert.Error(t, conn.Ping(ctx))

		limiter, err := ratelimit.NewRedisRateLimiter(conn.GetClient(), nil, logger.NewNoopLogger())
		require.NoError(t, err)
		policy := models.TrafficClassAuthenticated.Policy()
		_, err = limiter.TryConsume(ctx, "ratelimit:203.0.113.5:auth", policy)
		assert.Error(t, err, "store errors are left to the admission controller")

		require.NoError(t, mr.Restart())
		assert.NoError(t, conn.Ping(ctx), "client reconnects once redis is back")
		decision, err := limiter.TryConsume(ctx, "ratelimit:203.0.113.5:auth", policy)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("should reject unknown modes and missing addresses", func(t *testing.T) {
		conn := redis.NewRedisConnection(&config.RedisConfig{Mode: "mesh", Addresses: []string{"x:1"}}, logger.NewNoopLogger())
		assert.Error(t, conn.Connect(ctx))

		conn = redis.NewRedisConnection(&config.RedisConfig{Mode: "standalone"}, logger.NewNoopLogger())
		assert.Error(t, conn.Connect(ctx))
	})
}
