package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/infrastructure/ratelimit"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

func TestPrintBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := ratelimit.NewMemoryRateLimiter(func() time.Time { return now }, logger.NewNoopLogger())

	key := models.BucketKey("ratelimit", "203.0.113.5", models.TrafficClassGuestSearch)
	_, err := store.TryConsume(ctx, key, models.TrafficClassGuestSearch.Policy())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printBuckets(ctx, &out, store, "ratelimit", "203.0.113.5", models.TrafficClasses()))

	text := out.String()
	assert.Contains(t, text, "ratelimit:203.0.113.5:guest-search  tokens=4.00/5")
	assert.Contains(t, text, "ratelimit:203.0.113.5:guest-details  full (20/20)")
	assert.Contains(t, text, "ratelimit:203.0.113.5:auth  full (60/60)")
}

func TestInspectRequiresClient(t *testing.T) {
	rootCmd.SetArgs([]string{"ratelimit", "inspect"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	assert.EqualError(t, err, "--client is required")
}
