// Package storage signs and manages photo objects in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/patrickmn/go-cache"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var _ service.ObjectStorage = (*MinioStorage)(nil)

// viewURLCacheTTL keeps a cached GET URL well inside its signature lifetime.
const viewURLCacheTTL = constants.ViewURLExpiry - time.Hour

// objectAPI is the part of *minio.Client the adapter uses.
type objectAPI interface {
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// MinioStorage implements service.ObjectStorage on minio-go.
type MinioStorage struct {
	client   objectAPI
	bucket   string
	viewURLs *cache.Cache
	logger   logger.Logger
}

// NewMinioStorage builds a client for cfg. Region must be set so presigning stays offline.
func NewMinioStorage(cfg *config.StorageConfig, log logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return newMinioStorage(client, cfg.Bucket, log), nil
}

func newMinioStorage(client objectAPI, bucket string, log logger.Logger) *MinioStorage {
	return &MinioStorage{
		client:   client,
		bucket:   bucket,
		viewURLs: cache.New(viewURLCacheTTL, 10*time.Minute),
		logger:   log.WithComponent("ObjectStorage"),
	}
}

// PresignUpload signs a PUT bound to the JPEG content type and exactly size bytes.
func (s *MinioStorage) PresignUpload(ctx context.Context, key string, size int64) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", constants.PhotoContentType)
	headers.Set("Content-Length", strconv.FormatInt(size, 10))

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, constants.UploadURLExpiry, nil, headers)
	if err != nil {
		s.logger.Error(ctx, "Failed to presign upload", err, logger.String("key", key))
		return "", errors.ErrInternal(err)
	}
	return u.String(), nil
}

// ViewURL returns a GET URL, reusing a cached signature while it has over an hour left.
func (s *MinioStorage) ViewURL(ctx context.Context, key string) (string, error) {
	if cached, ok := s.viewURLs.Get(key); ok {
		return cached.(string), nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, constants.ViewURLExpiry, nil)
	if err != nil {
		s.logger.Error(ctx, "Failed to presign view url", err, logger.String("key", key))
		return "", errors.ErrInternal(err)
	}
	signed := u.String()
	s.viewURLs.SetDefault(key, signed)
	return signed, nil
}

// ObjectSize returns the stored size of key.
func (s *MinioStorage) ObjectSize(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == minio.NoSuchKey || resp.StatusCode == http.StatusNotFound {
			return 0, errors.ErrNotFound("Uploaded photo not found.").WithCause(err)
		}
		s.logger.Error(ctx, "Failed to stat object", err, logger.String("key", key))
		return 0, errors.ErrInternal(err)
	}
	return info.Size, nil
}

// DeleteObject removes one object. Removing a missing object is not an error.
func (s *MinioStorage) DeleteObject(ctx context.Context, key string) error {
	s.viewURLs.Delete(key)
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Error(ctx, "Failed to delete object", err, logger.String("key", key))
		return errors.ErrInternal(err)
	}
	return nil
}

// DeleteObjects removes keys in bulk and reports the first failure.
func (s *MinioStorage) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		s.viewURLs.Delete(k)
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var firstErr error
	failed := 0
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = rerr.Err
		}
	}
	if firstErr != nil {
		s.logger.Error(ctx, "Failed to delete objects", firstErr,
			logger.Int("failed", failed),
			logger.Int("requested", len(keys)),
		)
		return errors.ErrInternal(firstErr)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *MinioStorage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
