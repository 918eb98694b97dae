// Package redis provides Redis connection management and client initialization.
// It supports standalone, cluster, and sentinel deployment modes with connection pooling.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// ConnectionMode defines Redis deployment mode
type ConnectionMode string

const (
	// ModeStandalone represents single Redis instance
	ModeStandalone ConnectionMode = "standalone"
	// ModeCluster represents Redis cluster mode
	ModeCluster ConnectionMode = "cluster"
	// ModeSentinel represents Redis sentinel mode for high availability
	ModeSentinel ConnectionMode = "sentinel"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a new Redis connection manager instance.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("RedisConnection"),
	}
}

// NewRedisConnectionFromClient wraps an existing client, mainly for tests.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{config: &config.RedisConfig{}, client: client, logger: log}
}

// Connect builds the client for the configured mode and pings it. A failed ping is logged and
// the client kept; use Ping to require a live server.
//
// Client-side retries are disabled: the admission controller must fail fast and never retry a
// bucket update, and every caller bounds its own calls with a context deadline.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	opts, err := rc.universalOptions()
	if err != nil {
		return err
	}

	var client redis.UniversalClient
	switch ConnectionMode(rc.config.Mode) {
	case ModeStandalone:
		client = redis.NewClient(opts.Simple())
	case ModeCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case ModeSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		return fmt.Errorf("unsupported Redis mode: %s", rc.config.Mode)
	}

	rc.client = client

	// go-redis dials lazily, so an unreachable server at startup only means callers see
	// errors until it comes back.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Warn(ctx, "Redis unreachable at startup, continuing without it",
			logger.String("mode", rc.config.Mode),
			logger.Any("addrs", rc.config.Addresses),
			logger.Err(err),
		)
		return nil
	}

	rc.logger.Info(ctx, "Redis connection established successfully",
		logger.String("mode", rc.config.Mode),
		logger.Any("addrs", rc.config.Addresses),
		logger.Int("pool_size", rc.config.PoolSize),
	)
	return nil
}

func (rc *RedisConnection) universalOptions() (*redis.UniversalOptions, error) {
	if len(rc.config.Addresses) == 0 {
		return nil, fmt.Errorf("redis addresses not configured")
	}

	opts := &redis.UniversalOptions{
		Addrs:      rc.config.Addresses,
		Password:   rc.config.Password,
		DB:         rc.config.DB,
		MasterName: rc.config.SentinelMaster,

		PoolSize:     rc.config.PoolSize,
		MinIdleConns: rc.config.MinIdleConns,

		DialTimeout:           rc.config.DialTimeout,
		ReadTimeout:           rc.config.ReadTimeout,
		WriteTimeout:          rc.config.WriteTimeout,
		ContextTimeoutEnabled: true,

		MaxRetries: -1,
	}

	if rc.config.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// GetClient returns the underlying universal client; nil before Connect.
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	return rc.client
}

// Ping checks connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if rc.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return rc.client.Ping(ctx).Err()
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	err := rc.client.Close()
	rc.client = nil
	if err != nil {
		rc.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	rc.logger.Info(context.Background(), "Redis connection closed")
	return nil
}
