// Package errors defines the structured error type used by the grabpic API.
// Every AppError carries an HTTP status and a client-safe message; internal causes travel
// through Unwrap and are only ever logged.
package errors

import (
	"errors"
	"net/http"
)

// Code identifies an error category
type Code string

const (
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeBotDetected        Code = "bot_detected"
	CodeNotFound           Code = "not_found"
	CodeMethodNotAllowed   Code = "method_not_allowed"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeRateLimited        Code = "rate_limited"
	CodeQuotaExceeded      Code = "quota_exceeded"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeInternal           Code = "internal_error"
)

// Client-facing messages.
const (
	MsgInvalidRequest     = "Invalid request. Please check your input and try again."
	MsgUnauthorized       = "Authentication is required to access this resource."
	MsgForbidden          = "You do not have permission to access this album."
	MsgBotDetected        = "Bot activity detected."
	MsgNotFound           = "The requested resource was not found."
	MsgMethodNotAllowed   = "This HTTP method is not supported for the requested endpoint."
	MsgPayloadTooLarge    = "Request body is too large."
	MsgServiceUnavailable = "Service temporarily unavailable. Please try again later."
	MsgInternal           = "Something went wrong. Please try again later."
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the error category
	Code() Code

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Message returns the message that is safe to show to clients
	Message() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AppError

	// WithMetadata adds additional context metadata for logs
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

type baseError struct {
	code       Code
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *baseError) Code() Code { return e.code }
func (e *baseError) HTTPStatus() int { return e.httpStatus }
func (e *baseError) Message() string { return e.message }
func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// NewError creates a new AppError with the specified parameters
func NewError(code Code, httpStatus int, message string) AppError {
	return &baseError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates a 400 error. An empty message falls back to the generic one.
func ErrInvalidRequest(message string) AppError {
	if message == "" {
		message = MsgInvalidRequest
	}
	return NewError(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthorized creates a 401 error
func ErrUnauthorized() AppError {
	return NewError(CodeUnauthorized, http.StatusUnauthorized, MsgUnauthorized)
}

// ErrForbidden creates a 403 album ownership error
func ErrForbidden() AppError {
	return NewError(CodeForbidden, http.StatusForbidden, MsgForbidden)
}

// ErrBotDetected creates a 403 bot challenge failure
func ErrBotDetected() AppError {
	return NewError(CodeBotDetected, http.StatusForbidden, MsgBotDetected)
}

// ErrNotFound creates a 404 error
func ErrNotFound(message string) AppError {
	if message == "" {
		message = MsgNotFound
	}
	return NewError(CodeNotFound, http.StatusNotFound, message)
}

// ErrMethodNotAllowed creates a 405 error
func ErrMethodNotAllowed() AppError {
	return NewError(CodeMethodNotAllowed, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// ErrPayloadTooLarge creates a 413 error
func ErrPayloadTooLarge() AppError {
	return NewError(CodePayloadTooLarge, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
}

// ErrRateLimited creates a 429 error carrying the traffic-class specific message
func ErrRateLimited(message string) AppError {
	return NewError(CodeRateLimited, http.StatusTooManyRequests, message)
}

// ErrQuotaExceeded creates a 400 error for per-host photo quota violations
func ErrQuotaExceeded(message string) AppError {
	return NewError(CodeQuotaExceeded, http.StatusBadRequest, message)
}

// ErrServiceUnavailable creates a 503 error
func ErrServiceUnavailable() AppError {
	return NewError(CodeServiceUnavailable, http.StatusServiceUnavailable, MsgServiceUnavailable)
}

// ErrInternal creates a 500 error wrapping cause
func ErrInternal(cause error) AppError {
	return NewError(CodeInternal, http.StatusInternalServerError, MsgInternal).WithCause(cause)
}

// ================================================================================
// Error Utilities
// ================================================================================

// As finds the first AppError in err's chain
func As(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err's chain holds an AppError with the given code
func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code() == code
}

// HTTPStatusOf returns the status for err, 500 for anything that is not an AppError
func HTTPStatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// ShouldLogError reports whether err is worth an error-level log line
func ShouldLogError(err error) bool {
	return HTTPStatusOf(err) >= http.StatusInternalServerError
}
