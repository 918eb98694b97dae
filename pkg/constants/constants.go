// Package constants defines system-wide constants for the grabpic API.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Request Admission Constants
// ================================================================================

const (
	// MaxRequestBodyBytes is the hard cap for non-multipart request bodies (512 KiB)
	MaxRequestBodyBytes int64 = 512 * 1024

	// BucketTTLGrace is added to the full-refill time of a policy to get the bucket key TTL
	BucketTTLGrace = 120 * time.Second

	// DefaultStoreTimeout bounds one round trip to the shared bucket store
	DefaultStoreTimeout = 150 * time.Millisecond

	// DefaultBucketKeyPrefix namespaces bucket keys in the shared store
	DefaultBucketKeyPrefix = "ratelimit"
)

// RateLimitBackend selects the token bucket store implementation
type RateLimitBackend string

const (
	// RateLimitBackendRedis shares bucket state across instances (default)
	RateLimitBackendRedis RateLimitBackend = "redis"

	// RateLimitBackendMemory keeps bucket state in process; single-instance only
	RateLimitBackendMemory RateLimitBackend = "memory"
)

// ================================================================================
// Hardening Header Constants
// ================================================================================

const (
	HeaderContentTypeOptions = "X-Content-Type-Options"
	HeaderFrameOptions       = "X-Frame-Options"
	HeaderXSSProtection      = "X-XSS-Protection"
	HeaderReferrerPolicy     = "Referrer-Policy"
	HeaderPermissionsPolicy  = "Permissions-Policy"
)

// ================================================================================
// Request Header Constants
// ================================================================================

const (
	// HeaderAuthorization carries the Bearer JWT
	HeaderAuthorization = "Authorization"

	// HeaderTurnstileToken carries the bot-challenge response token
	HeaderTurnstileToken = "X-Turnstile-Token"

	// HeaderForwardedFor is only honored by the edge address resolver for trusted peers
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderRequestID is echoed back on every response
	HeaderRequestID = "X-Request-ID"
)

// ================================================================================
// Photo & Album Constants
// ================================================================================

// AccessMode controls whether guests can see a photo without a face search
type AccessMode string

const (
	// AccessModePublic photos are listed on the guest details page
	AccessModePublic AccessMode = "PUBLIC"

	// AccessModeProtected photos are only returned through guest face search
	AccessModeProtected AccessMode = "PROTECTED"
)

const (
	// MaxPhotoBytes is the largest accepted single photo (10 MB)
	MaxPhotoBytes int64 = 10 * 1024 * 1024

	// MaxUploadBatch is the largest number of photos per upload-url or save request
	MaxUploadBatch = 50

	// MaxPhotosPerUser is the per-host photo quota across all albums
	MaxPhotosPerUser int64 = 500

	// MaxSearchResultIDs caps the photo ids a guest search result may reference
	MaxSearchResultIDs = 100

	// MaxAlbumTitleLength caps album titles
	MaxAlbumTitleLength = 120

	// PhotoContentType is the only accepted upload content type
	PhotoContentType = "image/jpeg"

	// UploadURLExpiry is how long a presigned PUT stays valid
	UploadURLExpiry = 15 * time.Minute

	// ViewURLExpiry is how long a presigned GET stays valid
	ViewURLExpiry = 7 * time.Hour

	// ObjectKeyPrefix is the root of every stored photo
	ObjectKeyPrefix = "albums"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context and gin.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyHostID is the key for the authenticated host (JWT subject)
	ContextKeyHostID ContextKey = "host_id"

	// ContextKeyClaims is the key for verified JWT claims
	ContextKeyClaims ContextKey = "claims"
)

// ================================================================================
// Service Constants
// ================================================================================

const (
	// ServiceName is used for tracing and metrics namespaces
	ServiceName = "grabpic-api"

	// MetricsNamespace prefixes every Prometheus metric
	MetricsNamespace = "grabpic"

	// EnvironmentProduction disables pprof and switches gin to release mode
	EnvironmentProduction = "production"
)
