package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/grabpic/grabpic-api/internal/domain/models"
)

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PresignUpload(ctx context.Context, key string, size int64) (string, error) {
	args := m.Called(ctx, key, size)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) ViewURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) ObjectSize(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) DeleteObjects(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockPhotoQueue is a mock implementation of PhotoQueue
type MockPhotoQueue struct {
	mock.Mock
}

func (m *MockPhotoQueue) EnqueuePhoto(ctx context.Context, job models.PhotoJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockBotVerifier is a mock implementation of BotVerifier
type MockBotVerifier struct {
	mock.Mock
}

func (m *MockBotVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(tokenString string) (*models.HostClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HostClaims), args.Error(1)
}

// MockAdmissionStore is a mock implementation of AdmissionStore
type MockAdmissionStore struct {
	mock.Mock
}

func (m *MockAdmissionStore) TryConsume(ctx context.Context, key string, policy models.RatePolicy) (models.AdmissionDecision, error) {
	args := m.Called(ctx, key, policy)
	return args.Get(0).(models.AdmissionDecision), args.Error(1)
}
