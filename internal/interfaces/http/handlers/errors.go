package handlers

import (
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondError 将错误映射为 HTTP 响应并中止处理链。
// AppErrors keep their status and client message. A body that tripped the size guard mid-read
// is answered with the same 413 as the guard itself. Malformed JSON and validation failures
// become 400. Anything else is logged and answered with a generic 500.
func RespondError(c *gin.Context, log logger.Logger, err error) {
	appErr := classify(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Error(c.Request.Context(), "Request failed", err,
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("code", string(appErr.Code())),
		)
	} else {
		log.Debug(c.Request.Context(), "Request rejected",
			logger.String("path", c.Request.URL.Path),
			logger.String("code", string(appErr.Code())),
			logger.Err(err),
		)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), ErrorBody{Error: appErr.Message()})
}

func classify(err error) errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	var maxBytesErr *http.MaxBytesError
	if goerrors.As(err, &maxBytesErr) {
		return errors.ErrPayloadTooLarge()
	}

	var (
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
		validationErr validator.ValidationErrors
	)
	switch {
	case goerrors.As(err, &syntaxErr),
		goerrors.As(err, &typeErr),
		goerrors.As(err, &validationErr),
		goerrors.Is(err, io.EOF),
		goerrors.Is(err, io.ErrUnexpectedEOF):
		return errors.ErrInvalidRequest("").WithCause(err)
	}

	return errors.ErrInternal(err)
}

// BindJSON binds the body into obj and answers the failure itself. It returns false when the
// handler must stop.
func BindJSON(c *gin.Context, log logger.Logger, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var maxBytesErr *http.MaxBytesError
		if !goerrors.As(err, &maxBytesErr) {
			err = errors.ErrInvalidRequest("").WithCause(err)
		}
		RespondError(c, log, err)
		return false
	}
	return true
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	appErr := errors.ErrNotFound("")
	c.JSON(appErr.HTTPStatus(), ErrorBody{Error: appErr.Message()})
}

// MethodNotAllowed answers routes that exist under another method.
func MethodNotAllowed(c *gin.Context) {
	appErr := errors.ErrMethodNotAllowed()
	c.JSON(appErr.HTTPStatus(), ErrorBody{Error: appErr.Message()})
}
