package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/internal/application/dto"
	"github.com/grabpic/grabpic-api/internal/domain/repository"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

const (
	MsgNoPhotoIDs      = "No photo IDs provided."
	MsgTooManyPhotoIDs = "Too many photo IDs. Maximum is 100."
)

// GuestAppService serves unauthenticated album visitors.
// GuestAppService 访客应用服务接口
type GuestAppService interface {
	// AlbumDetails returns the title and the PUBLIC photos of an album.
	AlbumDetails(ctx context.Context, albumID uuid.UUID) (*dto.GuestAlbumResponse, error)

	// SearchResults returns view URLs for the ids that belong to the album; others are dropped.
	SearchResults(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) ([]dto.PhotoResponse, error)
}

type guestAppServiceImpl struct {
	albums  repository.AlbumRepository
	photos  repository.PhotoRepository
	storage service.ObjectStorage
	logger  logger.Logger
}

// NewGuestAppService creates a new instance of GuestAppService.
func NewGuestAppService(
	albums repository.AlbumRepository,
	photos repository.PhotoRepository,
	storage service.ObjectStorage,
	log logger.Logger,
) GuestAppService {
	return &guestAppServiceImpl{
		albums:  albums,
		photos:  photos,
		storage: storage,
		logger:  log.WithComponent("GuestAppService"),
	}
}

func (s *guestAppServiceImpl) AlbumDetails(ctx context.Context, albumID uuid.UUID) (*dto.GuestAlbumResponse, error) {
	album, err := s.albums.FindByID(ctx, albumID)
	if err != nil {
		return nil, err
	}
	public, err := s.photos.ListByAlbumAndMode(ctx, albumID, constants.AccessModePublic)
	if err != nil {
		return nil, err
	}

	resp := &dto.GuestAlbumResponse{Title: album.Title, PublicPhotos: make([]dto.PhotoResponse, 0, len(public))}
	for _, p := range public {
		viewURL, err := s.storage.ViewURL(ctx, p.StorageKey)
		if err != nil {
			return nil, err
		}
		resp.PublicPhotos = append(resp.PublicPhotos, dto.NewPhotoResponse(p, viewURL, nil))
	}
	return resp, nil
}

func (s *guestAppServiceImpl) SearchResults(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) ([]dto.PhotoResponse, error) {
	if len(ids) == 0 {
		return nil, errors.ErrInvalidRequest(MsgNoPhotoIDs)
	}
	if len(ids) > constants.MaxSearchResultIDs {
		return nil, errors.ErrInvalidRequest(MsgTooManyPhotoIDs)
	}
	if _, err := s.albums.FindByID(ctx, albumID); err != nil {
		return nil, err
	}

	photos, err := s.photos.FindByIDsInAlbum(ctx, albumID, ids)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.PhotoResponse, 0, len(photos))
	for _, p := range photos {
		viewURL, err := s.storage.ViewURL(ctx, p.StorageKey)
		if err != nil {
			return nil, err
		}
		resp = append(resp, dto.NewPhotoResponse(p, viewURL, nil))
	}
	return resp, nil
}
