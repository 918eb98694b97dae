// Package service declares the collaborator contracts the application layer depends on.
package service

import (
	"context"

	"github.com/grabpic/grabpic-api/internal/domain/models"
)

// AdmissionStore holds token bucket state for the admission controller.
type AdmissionStore interface {
	// TryConsume refills the bucket under key, takes one token if available and persists the
	// result, all as one atomic step. An error means the store could not be consulted.
	TryConsume(ctx context.Context, key string, policy models.RatePolicy) (models.AdmissionDecision, error)
}

// BucketInspector reads bucket state without modifying it.
type BucketInspector interface {
	Inspect(ctx context.Context, key string) (*models.BucketSnapshot, error)
}

// ObjectStorage signs and manages photo objects.
type ObjectStorage interface {
	// PresignUpload returns a PUT URL bound to key, the photo content type and exactly size bytes.
	PresignUpload(ctx context.Context, key string, size int64) (string, error)

	// ViewURL returns a time-limited GET URL for key.
	ViewURL(ctx context.Context, key string) (string, error)

	// ObjectSize returns the stored size of key; a missing object yields a not_found AppError.
	ObjectSize(ctx context.Context, key string) (int64, error)

	DeleteObject(ctx context.Context, key string) error
	DeleteObjects(ctx context.Context, keys []string) error
}

// PhotoQueue hands photos to the face processing worker.
type PhotoQueue interface {
	EnqueuePhoto(ctx context.Context, job models.PhotoJob) error
}

// BotVerifier validates a bot-challenge response token.
type BotVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// TokenVerifier validates bearer tokens and returns their claims.
type TokenVerifier interface {
	Verify(tokenString string) (*models.HostClaims, error)
}
