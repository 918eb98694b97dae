package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/infrastructure/persistence/redis"
	"github.com/grabpic/grabpic-api/internal/infrastructure/ratelimit"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect token buckets in the shared store",
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the buckets of one client address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, _ := cmd.Flags().GetString("client")
		classTag, _ := cmd.Flags().GetString("class")
		if client == "" {
			return fmt.Errorf("--client is required")
		}

		classes := models.TrafficClasses()
		if classTag != "" {
			class, ok := models.ParseTrafficClass(classTag)
			if !ok {
				return fmt.Errorf("unknown class %q", classTag)
			}
			classes = []models.TrafficClass{class}
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		conn := redis.NewRedisConnection(&cfg.Redis, log)
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		defer conn.Close()
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}

		limiter, err := ratelimit.NewRedisRateLimiter(conn.GetClient(), &ratelimit.RateLimiterConfig{
			StoreTimeout: cfg.RateLimit.StoreTimeout,
		}, log)
		if err != nil {
			return err
		}
		return printBuckets(ctx, cmd.OutOrStdout(), limiter, cfg.RateLimit.KeyPrefix, client, classes)
	},
}

func printBuckets(ctx context.Context, w io.Writer, store service.BucketInspector, prefix, client string, classes []models.TrafficClass) error {
	for _, class := range classes {
		key := models.BucketKey(prefix, client, class)
		snap, err := store.Inspect(ctx, key)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", key, err)
		}
		policy := class.Policy()
		if !snap.Exists {
			fmt.Fprintf(w, "%-14s %s  full (%d/%d)\n", class.Tag(), key, policy.Capacity, policy.Capacity)
			continue
		}
		fmt.Fprintf(w, "%-14s %s  tokens=%.2f/%d last_refill=%s ttl=%s\n",
			class.Tag(), key, snap.Tokens, policy.Capacity,
			snap.LastRefill.UTC().Format(time.RFC3339), snap.TTL.Round(time.Second))
	}
	return nil
}

func init() {
	inspectCmd.Flags().String("client", "", "client address, as seen by the server")
	inspectCmd.Flags().String("class", "", "traffic class (guest-search, guest-details, auth); all when empty")
	ratelimitCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(ratelimitCmd)
}
