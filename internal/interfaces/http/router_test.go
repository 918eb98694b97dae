package http_test

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	appservice "github.com/grabpic/grabpic-api/internal/application/service"
	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service/mocks"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/internal/infrastructure/ratelimit"
	apphttp "github.com/grabpic/grabpic-api/internal/interfaces/http"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/handlers"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixture struct {
	engine    *gin.Engine
	admission *ratelimit.MemoryRateLimiter
	albums  *mocks.MockAlbumRepository
	photos  *mocks.MockPhotoRepository
	storage *mocks.MockObjectStorage
	bots    *mocks.MockBotVerifier
	tokens  *mocks.MockTokenVerifier
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1", Port: 8080, Environment: "test",
			MaxBodyBytes: constants.MaxRequestBodyBytes,
		},
		RateLimit: config.RateLimitConfig{
			Enabled: true, Backend: constants.RateLimitBackendMemory, FailOpen: true,
			StoreTimeout: constants.DefaultStoreTimeout, KeyPrefix: "test",
		},
	}
}

func setupRouter(t *testing.T, dbHealthy bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNoopLogger()

	f := &fixture{
		albums:  new(mocks.MockAlbumRepository),
		photos:  new(mocks.MockPhotoRepository),
		storage: new(mocks.MockObjectStorage),
		bots:    new(mocks.MockBotVerifier),
		tokens:  new(mocks.MockTokenVerifier),
	}
	queue := new(mocks.MockPhotoQueue)
	f.admission = ratelimit.NewMemoryRateLimiter(nil, log)

	reg := prometheus.NewRegistry()
	health := map[string]handlers.Pinger{
		"redis": pingFunc(func(context.Context) error { return nil }),
		"database": pingFunc(func(context.Context) error {
			if dbHealthy {
				return nil
			}
			return goerrors.New("connection refused")
		}),
	}

	r, err := apphttp.NewRouter(apphttp.Dependencies{
		Config:    testConfig(),
		Logger:    log,
		Metrics:   monitoring.NewMetrics(reg),
		Gatherer:  reg,
		Tracer:    noop.NewTracerProvider().Tracer("test"),
		Admission: f.admission,
		Tokens:    f.tokens,
		Albums: handlers.NewAlbumHandler(
			appservice.NewAlbumAppService(f.albums, f.photos, f.storage, queue, log), f.bots, log),
		Guests: handlers.NewGuestHandler(
			appservice.NewGuestAppService(f.albums, f.photos, f.storage, log), log),
		Health: handlers.NewHealthHandler(health, log),
	})
	require.NoError(t, err)
	f.engine = r.Engine()
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "198.51.100.7:40000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body handlers.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func TestRouter_ErrorMapping(t *testing.T) {
	f := setupRouter(t, true)

	t.Run("unknown route", func(t *testing.T) {
		w := f.do(http.MethodGet, "/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errors.MsgNotFound, errorOf(t, w))
		assert.Equal(t, "nosniff", w.Header().Get(constants.HeaderContentTypeOptions))
	})

	t.Run("wrong method", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/api/albums/"+uuid.NewString()+"/guest/details", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, errors.MsgMethodNotAllowed, errorOf(t, w))
	})

	t.Run("missing token", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/albums", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "DENY", w.Header().Get(constants.HeaderFrameOptions))
	})

	t.Run("malformed album id", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/albums/not-a-uuid/guest/details", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.MsgInvalidRequest, errorOf(t, w))
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `["` + strings.Repeat("a", int(constants.MaxRequestBodyBytes)) + `"]`
		w := f.do(http.MethodPost, "/api/albums/"+uuid.NewString()+"/guest/search-results", body, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, errors.MsgPayloadTooLarge, errorOf(t, w))
	})
}

func TestRouter_AlbumRoutes(t *testing.T) {
	f := setupRouter(t, true)
	auth := map[string]string{"Authorization": "Bearer good", constants.HeaderTurnstileToken: "tt"}
	claims := &models.HostClaims{}
	claims.Subject = "host-1"
	f.tokens.On("Verify", "good").Return(claims, nil)

	t.Run("bot check failure", func(t *testing.T) {
		f.bots.On("Verify", mock.Anything, "tt", "198.51.100.7").Return(false, nil).Once()
		w := f.do(http.MethodPost, "/api/albums", `{"title":"Party"}`, auth)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, errors.MsgBotDetected, errorOf(t, w))
		f.albums.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("create album", func(t *testing.T) {
		f.bots.On("Verify", mock.Anything, "tt", "198.51.100.7").Return(true, nil).Once()
		f.albums.On("Create", mock.Anything, mock.MatchedBy(func(a *models.Album) bool {
			return a.HostID == "host-1" && a.Title == "Party"
		})).Return(nil).Once()

		w := f.do(http.MethodPost, "/api/albums", `{"title":"Party"}`, auth)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Party", resp["title"])
		assert.NotEmpty(t, resp["createdAt"])
	})

	t.Run("title is validated", func(t *testing.T) {
		f.bots.On("Verify", mock.Anything, "tt", "198.51.100.7").Return(true, nil).Once()
		w := f.do(http.MethodPost, "/api/albums", `{"title":"`+strings.Repeat("x", 121)+`"}`, auth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.MsgInvalidRequest, errorOf(t, w))
	})

	t.Run("privacy needs a boolean", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/api/albums/"+uuid.NewString()+"/privacy", "", auth)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non owner is forbidden", func(t *testing.T) {
		album := models.NewAlbum("Theirs", "host-2")
		f.albums.On("FindByID", mock.Anything, album.ID).Return(album, nil)
		w := f.do(http.MethodGet, "/api/albums/"+album.ID.String()+"/photos", "", auth)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, errors.MsgForbidden, errorOf(t, w))
	})
}

func TestRouter_GuestRoutes(t *testing.T) {
	f := setupRouter(t, true)
	album := models.NewAlbum("Open day", "host-1")
	f.albums.On("FindByID", mock.Anything, album.ID).Return(album, nil)

	public := models.NewPhoto(album.ID, "albums/x/y.jpg")
	public.AccessMode = constants.AccessModePublic
	f.photos.On("ListByAlbumAndMode", mock.Anything, album.ID, constants.AccessModePublic).Return([]*models.Photo{public}, nil)
	f.photos.On("FindByIDsInAlbum", mock.Anything, album.ID, []uuid.UUID{public.ID}).Return([]*models.Photo{public}, nil)
	f.storage.On("ViewURL", mock.Anything, "albums/x/y.jpg").Return("https://cdn/y.jpg", nil)

	t.Run("details", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/albums/"+album.ID.String()+"/guest/details", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"title":"Open day","publicPhotos":[{"id":"`+public.ID.String()+
			`","viewUrl":"https://cdn/y.jpg","isPublic":true,"processed":false,"faceCount":0,"boxes":[]}]}`, w.Body.String())
	})

	t.Run("search results take a bare id array", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/albums/"+album.ID.String()+"/guest/search-results", `["`+public.ID.String()+`"]`, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), public.ID.String())
	})

	t.Run("search results are admission controlled", func(t *testing.T) {
		// One token went to the previous subtest.
		var last *httptest.ResponseRecorder
		for i := 0; i < 5; i++ {
			last = f.do(http.MethodPost, "/api/albums/"+album.ID.String()+"/guest/search-results", `["`+public.ID.String()+`"]`, nil)
		}
		assert.Equal(t, http.StatusTooManyRequests, last.Code)
		assert.Equal(t, `{"error":"Too many search requests. Please wait a moment."}`, last.Body.String())
	})

	t.Run("guest routes under /api/ use their own buckets", func(t *testing.T) {
		ctx := context.Background()
		search, err := f.admission.Inspect(ctx, models.BucketKey("test", "198.51.100.7", models.TrafficClassGuestSearch))
		require.NoError(t, err)
		assert.True(t, search.Exists)
		assert.Less(t, search.Tokens, 1.0)

		details, err := f.admission.Inspect(ctx, models.BucketKey("test", "198.51.100.7", models.TrafficClassGuestDetails))
		require.NoError(t, err)
		assert.True(t, details.Exists)
		assert.InDelta(t, 19, details.Tokens, 0.1)

		authBucket, err := f.admission.Inspect(ctx, models.BucketKey("test", "198.51.100.7", models.TrafficClassAuthenticated))
		require.NoError(t, err)
		assert.False(t, authBucket.Exists)

		// An exhausted search bucket leaves the host routes untouched.
		w := f.do(http.MethodGet, "/api/albums", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := setupRouter(t, true)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", nil).Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/live", "", nil).Code)

		w := f.do(http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "grabpic_http_requests_total")
	})

	t.Run("database down", func(t *testing.T) {
		f := setupRouter(t, false)
		w := f.do(http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"error"`)
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/live", "", nil).Code)
	})
}
