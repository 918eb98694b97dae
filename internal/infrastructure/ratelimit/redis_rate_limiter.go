// Package ratelimit provides the token bucket stores behind the admission controller.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var (
	_ service.AdmissionStore  = (*RedisRateLimiter)(nil)
	_ service.BucketInspector = (*RedisRateLimiter)(nil)
)

// RedisRateLimiter keeps token buckets in Redis so that every API instance shares them.
type RedisRateLimiter struct {
	client redis.UniversalClient
	logger logger.Logger
	config *RateLimiterConfig
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	// StoreTimeout bounds a single store round trip
	StoreTimeout time.Duration
	// Now is the clock used for refill; defaults to time.Now
	Now func() time.Time
}

// DefaultRateLimiterConfig returns default rate limiter configuration.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		StoreTimeout: constants.DefaultStoreTimeout,
		Now:          time.Now,
	}
}

// tokenBucketScript refills, consumes and persists one bucket atomically.
//
// KEYS[1] bucket key
// ARGV[1] capacity, ARGV[2] refill per minute, ARGV[3] now (ms), ARGV[4] ttl (s)
//
// Returns {allowed (0|1), remaining tokens as a string}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_per_minute = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed < 0 then
  elapsed = 0
end
tokens = math.min(capacity, tokens + (elapsed * refill_per_minute) / 60000)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

if now > last then
  last = now
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', tostring(last))
redis.call('EXPIRE', key, ttl)

return {allowed, tostring(tokens)}
`)

// NewRedisRateLimiter creates a new Redis-based rate limiter.
//
// Parameters:
//   - client: Redis client
//   - config: Rate limiter configuration
//   - log: Logger instance
//
// Returns:
//   - *RedisRateLimiter: Initialized rate limiter
//   - error: Initialization error if any
func NewRedisRateLimiter(
	client redis.UniversalClient,
	config *RateLimiterConfig,
	log logger.Logger,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	defaults := DefaultRateLimiterConfig()
	if config == nil {
		config = defaults
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = defaults.StoreTimeout
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}

	rl := &RedisRateLimiter{
		client: client,
		logger: log.WithComponent("RedisRateLimiter"),
		config: config,
	}

	rl.logger.Info(context.Background(), "Redis rate limiter initialized",
		logger.Duration("store_timeout", config.StoreTimeout),
	)

	return rl, nil
}

// TryConsume implements service.AdmissionStore. The whole read-refill-consume-write cycle runs
// inside one Lua script, so concurrent callers on the same key are serialized by Redis.
// The call is bounded by StoreTimeout and never retried.
func (rl *RedisRateLimiter) TryConsume(
	ctx context.Context,
	key string,
	policy models.RatePolicy,
) (models.AdmissionDecision, error) {
	if policy.Capacity <= 0 || policy.RefillPerMinute <= 0 {
		return models.AdmissionDecision{}, fmt.Errorf("invalid rate policy %+v", policy)
	}

	ctx, cancel := context.WithTimeout(ctx, rl.config.StoreTimeout)
	defer cancel()

	nowMs := rl.config.Now().UnixMilli()
	result, err := tokenBucketScript.Run(ctx, rl.client, []string{key},
		policy.Capacity, policy.RefillPerMinute, nowMs, policy.TTLSeconds()).Slice()
	if err != nil {
		return models.AdmissionDecision{}, fmt.Errorf("token bucket script failed for %s: %w", key, err)
	}

	return parseScriptResult(result)
}

func parseScriptResult(result []interface{}) (models.AdmissionDecision, error) {
	if len(result) != 2 {
		return models.AdmissionDecision{}, fmt.Errorf("unexpected token bucket result length %d", len(result))
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return models.AdmissionDecision{}, fmt.Errorf("unexpected token bucket flag %T", result[0])
	}

	remainingStr, ok := result[1].(string)
	if !ok {
		return models.AdmissionDecision{}, fmt.Errorf("unexpected token bucket remaining %T", result[1])
	}
	remaining, err := strconv.ParseFloat(remainingStr, 64)
	if err != nil {
		return models.AdmissionDecision{}, fmt.Errorf("invalid token bucket remaining %q: %w", remainingStr, err)
	}

	return models.AdmissionDecision{Allowed: allowed == 1, Remaining: remaining}, nil
}

// Inspect implements service.BucketInspector. It only reads; the script stays the single writer.
func (rl *RedisRateLimiter) Inspect(ctx context.Context, key string) (*models.BucketSnapshot, error) {
	var (
		fields *redis.SliceCmd
		ttl    *redis.DurationCmd
	)
	_, err := rl.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HMGet(ctx, key, "tokens", "ts")
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s: %w", key, err)
	}

	snapshot := &models.BucketSnapshot{Key: key}
	values := fields.Val()
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return snapshot, nil
	}

	tokensStr, _ := values[0].(string)
	tsStr, _ := values[1].(string)
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt tokens field in %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt ts field in %s: %w", key, err)
	}

	snapshot.Exists = true
	snapshot.Tokens = tokens
	snapshot.LastRefill = time.UnixMilli(ts).UTC()
	snapshot.TTL = ttl.Val()
	return snapshot, nil
}
