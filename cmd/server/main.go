package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	appservice "github.com/grabpic/grabpic-api/internal/application/service"
	"github.com/grabpic/grabpic-api/internal/config"
	domainservice "github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/infrastructure/crypto"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/internal/infrastructure/persistence/postgres"
	"github.com/grabpic/grabpic-api/internal/infrastructure/persistence/redis"
	"github.com/grabpic/grabpic-api/internal/infrastructure/queue"
	"github.com/grabpic/grabpic-api/internal/infrastructure/ratelimit"
	"github.com/grabpic/grabpic-api/internal/infrastructure/secrets"
	"github.com/grabpic/grabpic-api/internal/infrastructure/storage"
	"github.com/grabpic/grabpic-api/internal/infrastructure/turnstile"
	apphttp "github.com/grabpic/grabpic-api/internal/interfaces/http"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/handlers"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	loader := config.NewLoader(startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	loader.Watch(func(next *config.Config) {
		appLogger.SetLevel(next.Log.Level)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error(context.Background(), "Server exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	if err := secrets.LoadFromVault(ctx, cfg, appLogger); err != nil {
		return err
	}

	tracing := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.AutoMigrate(ctx); err != nil {
		return err
	}

	health := map[string]handlers.Pinger{"database": db}
	g, gctx := errgroup.WithContext(ctx)

	var admission domainservice.AdmissionStore
	switch cfg.RateLimit.Backend {
	case constants.RateLimitBackendMemory:
		memory := ratelimit.NewMemoryRateLimiter(nil, appLogger)
		g.Go(func() error {
			return memory.RunJanitor(gctx, time.Minute)
		})
		admission = memory
		appLogger.Warn(ctx, "Using in-process rate limiting; limits are per instance")
	default:
		redisConn := redis.NewRedisConnection(&cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			return err
		}
		defer redisConn.Close()
		health["redis"] = redisConn

		admission, err = ratelimit.NewRedisRateLimiter(redisConn.GetClient(), &ratelimit.RateLimiterConfig{
			StoreTimeout: cfg.RateLimit.StoreTimeout,
		}, appLogger)
		if err != nil {
			return err
		}
	}

	objects, err := storage.NewMinioStorage(&cfg.Storage, appLogger)
	if err != nil {
		return err
	}
	health["storage"] = objects

	publisher, err := queue.NewKafkaPublisher(&cfg.Kafka, metrics, appLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	tokens, err := crypto.NewJWTVerifier(&cfg.JWT)
	if err != nil {
		return err
	}
	bots := turnstile.NewVerifier(&cfg.Turnstile, appLogger)
	if !bots.Enabled() {
		appLogger.Warn(ctx, "Turnstile secret not set; bot checks are disabled")
	}

	albums := postgres.NewAlbumRepository(db.DB(), appLogger)
	photos := postgres.NewPhotoRepository(db.DB(), appLogger)

	router, err := apphttp.NewRouter(apphttp.Dependencies{
		Config:    cfg,
		Logger:    appLogger,
		Metrics:   metrics,
		Gatherer:  registry,
		Tracer:    tracing.Tracer(),
		Admission: admission,
		Tokens:    tokens,
		Albums: handlers.NewAlbumHandler(
			appservice.NewAlbumAppService(albums, photos, objects, publisher, appLogger), bots, appLogger),
		Guests: handlers.NewGuestHandler(
			appservice.NewGuestAppService(albums, photos, objects, appLogger), appLogger),
		Health: handlers.NewHealthHandler(health, appLogger),
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		return router.Run(gctx)
	})
	return g.Wait()
}
