package middleware

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/pkg/constants"
	apperrors "github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// Body rejection reasons used as the metric label.
const (
	bodyRejectDeclared = "declared_length"
	bodyRejectStreamed = "streamed"
)

// BodySizeGuard caps the body of POST, PUT and PATCH requests that are not multipart.
//
// A declared Content-Length above maxBytes is rejected with 413 before any byte is read.
// Otherwise the body is wrapped in http.MaxBytesReader, so a chunked or lying client fails on
// the read that crosses the limit; handlers surface that as the same 413 through RespondError.
// maxBytes outside (0, 512 KiB] falls back to 512 KiB.
func BodySizeGuard(maxBytes int64, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	if maxBytes <= 0 || maxBytes > constants.MaxRequestBodyBytes {
		maxBytes = constants.MaxRequestBodyBytes
	}
	log = log.WithComponent("BodySizeGuard")

	return func(c *gin.Context) {
		if !isGuarded(c.Request) {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			log.Warn(c.Request.Context(), "Request body exceeds limit",
				logger.String("path", c.Request.URL.Path),
				logger.Int64("content_length", c.Request.ContentLength),
				logger.Int64("limit", maxBytes),
			)
			metrics.RecordBodyRejection(bodyRejectDeclared)
			abortPayloadTooLarge(c)
			return
		}

		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		body := &limitedBody{ReadCloser: http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)}
		c.Request.Body = body
		c.Next()

		if body.exceeded {
			log.Warn(c.Request.Context(), "Request body exceeded limit while streaming",
				logger.String("path", c.Request.URL.Path),
				logger.Int64("limit", maxBytes),
			)
			metrics.RecordBodyRejection(bodyRejectStreamed)
		}
	}
}

// isGuarded reports whether the request carries a body the guard must cap.
// A missing or unparsable Content-Type is guarded.
func isGuarded(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return true
	}
	return !strings.HasPrefix(mediaType, "multipart/")
}

// limitedBody remembers whether the wrapped MaxBytesReader tripped.
type limitedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var maxErr *http.MaxBytesError
	if err != nil && errors.As(err, &maxErr) {
		b.exceeded = true
	}
	return n, err
}

func abortPayloadTooLarge(c *gin.Context) {
	appErr := apperrors.ErrPayloadTooLarge()
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message()})
}
