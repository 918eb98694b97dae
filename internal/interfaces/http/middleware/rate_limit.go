package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/pkg/constants"
	apperrors "github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var hardeningHeaders = [...][2]string{
	{constants.HeaderContentTypeOptions, "nosniff"},
	{constants.HeaderFrameOptions, "DENY"},
	{constants.HeaderXSSProtection, "1; mode=block"},
	{constants.HeaderReferrerPolicy, "strict-origin-when-cross-origin"},
	{constants.HeaderPermissionsPolicy, "camera=(), microphone=(), geolocation=()"},
}

// SetHardeningHeaders writes the fixed browser hardening headers.
func SetHardeningHeaders(h http.Header) {
	for _, kv := range hardeningHeaders {
		h.Set(kv[0], kv[1])
	}
}

// AdmissionControl rate limits requests per client and traffic class.
//
// The path is classified into a traffic class; unclassified paths pass without touching the
// store. For a classified path one token is taken from the bucket "<prefix>:<client>:<class>".
// An empty bucket answers 429 with the class message and stops the chain.
//
// A store error or timeout is logged and, with FailOpen set, the request is admitted. With
// FailOpen unset it answers 503. Hardening headers are written on every response of this stage.
func AdmissionControl(
	store service.AdmissionStore,
	cfg *config.RateLimitConfig,
	metrics *monitoring.Metrics,
	log logger.Logger,
) gin.HandlerFunc {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = constants.DefaultBucketKeyPrefix
	}
	log = log.WithComponent("AdmissionControl")

	return func(c *gin.Context) {
		SetHardeningHeaders(c.Writer.Header())

		if !cfg.Enabled {
			c.Next()
			return
		}

		class, ok := models.ClassifyPath(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := models.BucketKey(prefix, ClientIdentity(c), class)

		start := time.Now()
		decision, err := store.TryConsume(ctx, key, class.Policy())
		latency := time.Since(start)

		if err != nil {
			if !cfg.FailOpen {
				log.Error(ctx, "Admission store unavailable, rejecting request", err,
					logger.String("key", key),
					logger.String("class", class.Tag()),
				)
				metrics.RecordAdmission(class.Tag(), monitoring.AdmissionFailClosed, latency)
				appErr := apperrors.ErrServiceUnavailable()
				c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message()})
				return
			}
			log.Warn(ctx, "Admission store unavailable, admitting request",
				logger.Err(err),
				logger.String("key", key),
				logger.String("class", class.Tag()),
			)
			metrics.RecordAdmission(class.Tag(), monitoring.AdmissionFailOpen, latency)
			c.Next()
			return
		}

		if !decision.Allowed {
			log.Warn(ctx, "Rate limit exceeded",
				logger.String("key", key),
				logger.String("class", class.Tag()),
			)
			metrics.RecordAdmission(class.Tag(), monitoring.AdmissionDenied, latency)
			appErr := apperrors.ErrRateLimited(class.RejectionMessage())
			c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message()})
			return
		}

		metrics.RecordAdmission(class.Tag(), monitoring.AdmissionAllowed, latency)
		c.Next()
	}
}
