package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/pkg/constants"
)

// MockAlbumRepository is a mock implementation of AlbumRepository
type MockAlbumRepository struct {
	mock.Mock
}

func (m *MockAlbumRepository) Create(ctx context.Context, album *models.Album) error {
	args := m.Called(ctx, album)
	return args.Error(0)
}

func (m *MockAlbumRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) ListByHost(ctx context.Context, hostID string) ([]*models.Album, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Album), args.Error(1)
}

func (m *MockAlbumRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPhotoRepository is a mock implementation of PhotoRepository
type MockPhotoRepository struct {
	mock.Mock
}

func (m *MockPhotoRepository) CreateBatch(ctx context.Context, photos []*models.Photo) error {
	args := m.Called(ctx, photos)
	return args.Error(0)
}

func (m *MockPhotoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]*models.Photo, error) {
	args := m.Called(ctx, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) ListByAlbumAndMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) ([]*models.Photo, error) {
	args := m.Called(ctx, albumID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) FindByIDsInAlbum(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error) {
	args := m.Called(ctx, albumID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Photo), args.Error(1)
}

func (m *MockPhotoRepository) CountByHost(ctx context.Context, hostID string) (int64, error) {
	args := m.Called(ctx, hostID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPhotoRepository) SetAccessMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) (int64, error) {
	args := m.Called(ctx, albumID, mode)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPhotoRepository) UpdateAccessMode(ctx context.Context, id uuid.UUID, mode constants.AccessMode) error {
	args := m.Called(ctx, id, mode)
	return args.Error(0)
}

func (m *MockPhotoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPhotoRepository) FacesByPhotoIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.FaceBox, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]models.FaceBox), args.Error(1)
}
