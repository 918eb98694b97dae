package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var (
	_ service.AdmissionStore  = (*MemoryRateLimiter)(nil)
	_ service.BucketInspector = (*MemoryRateLimiter)(nil)
)

// MemoryRateLimiter keeps token buckets in process memory.
// Buckets are per instance, so limits only hold when a single instance serves all traffic.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucketEntry
	now     func() time.Time
	logger  logger.Logger
}

type bucketEntry struct {
	limiter  *rate.Limiter
	ttl      time.Duration
	lastSeen time.Time
}

// NewMemoryRateLimiter creates an in-process limiter. now may be nil.
func NewMemoryRateLimiter(now func() time.Time, log logger.Logger) *MemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucketEntry),
		now:     now,
		logger:  log.WithComponent("MemoryRateLimiter"),
	}
}

// TryConsume implements service.AdmissionStore.
func (m *MemoryRateLimiter) TryConsume(_ context.Context, key string, policy models.RatePolicy) (models.AdmissionDecision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.buckets[key]
	if !ok || now.Sub(entry.lastSeen) >= entry.ttl {
		entry = &bucketEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(policy.RefillPerMinute)/60), policy.Capacity),
			ttl:     policy.TTL(),
		}
		m.buckets[key] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	return models.AdmissionDecision{
		Allowed:   allowed,
		Remaining: entry.limiter.TokensAt(now),
	}, nil
}

// Inspect implements service.BucketInspector.
func (m *MemoryRateLimiter) Inspect(_ context.Context, key string) (*models.BucketSnapshot, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := &models.BucketSnapshot{Key: key}
	entry, ok := m.buckets[key]
	if !ok || now.Sub(entry.lastSeen) >= entry.ttl {
		return snapshot, nil
	}
	snapshot.Exists = true
	snapshot.Tokens = entry.limiter.TokensAt(now)
	snapshot.LastRefill = entry.lastSeen
	snapshot.TTL = entry.ttl - now.Sub(entry.lastSeen)
	return snapshot, nil
}

// Cleanup drops buckets idle past their TTL and returns how many were removed.
func (m *MemoryRateLimiter) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.buckets {
		if now.Sub(entry.lastSeen) >= entry.ttl {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of live buckets.
func (m *MemoryRateLimiter) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// RunJanitor runs Cleanup every interval and blocks until ctx is done.
func (m *MemoryRateLimiter) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := m.Cleanup(); removed > 0 {
				m.logger.Debug(ctx, "Cleaned up idle buckets", logger.Int("count", removed))
			}
		}
	}
}
