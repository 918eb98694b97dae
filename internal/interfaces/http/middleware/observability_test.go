package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/middleware"
)

func TestObservabilityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(middleware.ObservabilityMiddleware(tp.Tracer("test"), metrics))
	router.GET("/guest/details/:albumId", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guest/details/abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/guest/details/:albumId", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "not_found", "404")))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /guest/details/:albumId", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", 200))
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/guest/details/:albumId"))
}
