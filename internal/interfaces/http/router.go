package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/handlers"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/middleware"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// Dependencies are the collaborators the router wires into the pipeline.
type Dependencies struct {
	Config    *config.Config
	Logger    logger.Logger
	Metrics   *monitoring.Metrics
	Gatherer  prometheus.Gatherer
	Tracer    trace.Tracer
	Admission service.AdmissionStore
	Tokens    service.TokenVerifier
	Albums    *handlers.AlbumHandler
	Guests    *handlers.GuestHandler
	Health    *handlers.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	deps   Dependencies
	logger logger.Logger
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(deps Dependencies) (*Router, error) {
	if deps.Config.Server.Environment == constants.EnvironmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// Client identity is the TCP peer; EdgeAddress is the only place forwarded headers are read.
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine: engine,
		deps:   deps,
		logger: deps.Logger.WithComponent("Router"),
	}
	if err := r.setupRoutes(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) setupRoutes() error {
	cfg := r.deps.Config
	trusted, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	// 全局中间件：顺序即请求管线
	r.engine.Use(
		handlers.RecoveryMiddleware(r.deps.Logger),
		handlers.RequestIDMiddleware(),
		handlers.LoggingMiddleware(r.deps.Logger),
		middleware.ObservabilityMiddleware(r.deps.Tracer, r.deps.Metrics),
		cors.New(corsConfig(cfg.Server.AllowedOrigins)),
		middleware.EdgeAddress(trusted),
		middleware.BodySizeGuard(cfg.Server.MaxBodyBytes, r.deps.Metrics, r.deps.Logger),
		middleware.AdmissionControl(r.deps.Admission, &cfg.RateLimit, r.deps.Metrics, r.deps.Logger),
	)

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", r.deps.Health.HealthCheck)
	r.engine.GET("/ready", r.deps.Health.ReadinessCheck)
	r.engine.GET("/live", r.deps.Health.LivenessCheck)

	gatherer := r.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if cfg.Server.Environment != constants.EnvironmentProduction {
		pprof.Register(r.engine)
	}

	albums := r.engine.Group("/api/albums", middleware.RequireJWT(r.deps.Tokens, r.deps.Logger))
	{
		albums.POST("", r.deps.Albums.CreateAlbum)
		albums.GET("", r.deps.Albums.ListAlbums)
		albums.DELETE("/:albumId", r.deps.Albums.DeleteAlbum)
		albums.PATCH("/:albumId/privacy", r.deps.Albums.SetAlbumPrivacy)
		albums.POST("/:albumId/upload-urls", r.deps.Albums.CreateUploadURLs)
		albums.POST("/:albumId/photos", r.deps.Albums.SavePhotos)
		albums.GET("/:albumId/photos", r.deps.Albums.ListPhotos)
		albums.DELETE("/:albumId/photos/:photoId", r.deps.Albums.DeletePhoto)
		albums.PUT("/:albumId/photos/:photoId/privacy", r.deps.Albums.SetPhotoPrivacy)
	}

	// 访客路由与相册共享前缀，但不经过 JWT 认证
	guest := r.engine.Group("/api/albums/:albumId/guest")
	{
		guest.GET("/details", r.deps.Guests.AlbumDetails)
		guest.POST("/search-results", r.deps.Guests.SearchResults)
	}

	r.engine.NoRoute(handlers.NotFound)
	r.engine.NoMethod(handlers.MethodNotAllowed)
	return nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID, constants.HeaderTurnstileToken},
		ExposeHeaders:    []string{constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (r *Router) Run(ctx context.Context) error {
	cfg := r.deps.Config.Server
	r.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           r.engine,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info(ctx, "Starting HTTP server", logger.String("address", cfg.Address()))
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info(context.Background(), "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(context.Background(), "Server forced to shutdown", err)
		return err
	}
	r.logger.Info(context.Background(), "HTTP server stopped")
	return <-errCh
}
