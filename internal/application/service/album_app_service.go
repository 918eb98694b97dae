// Package service implements the album and guest use cases on top of the domain contracts.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/internal/application/dto"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/repository"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// Client-facing messages of the album use cases.
const (
	MsgEmptyTitle          = "Album title must not be blank."
	MsgUploadCount         = "Upload count must be between 1 and 50."
	MsgUploadSize          = "Each photo must be between 1 byte and 10 MB."
	MsgInvalidPhotoRef     = "Invalid photo reference detected. Please re-upload your photos."
	MsgPhotoValidation     = "One or more photos failed validation (missing or too large). Maximum size is 10 MB."
	MsgPhotoNotInAlbum     = "Photo does not belong to this album."
	MsgPhotoRemoved        = "Photo removed successfully."
	MsgAlbumDeleted        = "Album deleted successfully."
	MsgPrivacyUpdated      = "Privacy updated."
	msgQuotaReachedFormat  = "You have reached the maximum of %d photos. Please delete old photos to free up space."
	msgQuotaExceededFormat = "Cannot save %d photos. You already have %d of %d allowed. Please delete old photos."
	msgSavedFormat         = "Successfully saved %d photos."
)

// AlbumAppService 相册应用服务接口
// All operations act on behalf of hostID, the subject of the caller's verified token.
type AlbumAppService interface {
	CreateAlbum(ctx context.Context, hostID string, req *dto.CreateAlbumRequest) (*dto.AlbumResponse, error)
	ListAlbums(ctx context.Context, hostID string) ([]dto.AlbumResponse, error)

	// CreateUploadURLs presigns one PUT per requested size, truncated to the host's remaining quota.
	CreateUploadURLs(ctx context.Context, hostID string, albumID uuid.UUID, req *dto.UploadURLRequest) ([]dto.UploadURLResponse, error)

	// SavePhotos registers uploaded objects. If any object fails validation, the objects validated
	// so far are deleted and nothing is saved.
	SavePhotos(ctx context.Context, hostID string, albumID uuid.UUID, req *dto.SavePhotosRequest) (*dto.MessageResponse, error)

	ListPhotos(ctx context.Context, hostID string, albumID uuid.UUID) ([]dto.PhotoResponse, error)
	DeletePhoto(ctx context.Context, hostID string, albumID, photoID uuid.UUID) (*dto.MessageResponse, error)
	DeleteAlbum(ctx context.Context, hostID string, albumID uuid.UUID) (*dto.MessageResponse, error)

	// SetPhotoPrivacy toggles one photo. Moving an unprocessed photo back to PROTECTED re-enqueues it.
	SetPhotoPrivacy(ctx context.Context, hostID string, albumID, photoID uuid.UUID, makePublic bool) (*dto.PrivacyResponse, error)

	// SetAlbumPrivacy toggles every photo of the album with the same re-enqueue rule.
	SetAlbumPrivacy(ctx context.Context, hostID string, albumID uuid.UUID, makePublic bool) (*dto.PrivacyResponse, error)
}

type albumAppServiceImpl struct {
	albums   repository.AlbumRepository
	photos   repository.PhotoRepository
	storage  service.ObjectStorage
	queue    service.PhotoQueue
	validate *validator.Validate
	logger   logger.Logger
}

// NewAlbumAppService creates a new instance of AlbumAppService.
func NewAlbumAppService(
	albums repository.AlbumRepository,
	photos repository.PhotoRepository,
	storage service.ObjectStorage,
	queue service.PhotoQueue,
	log logger.Logger,
) AlbumAppService {
	return &albumAppServiceImpl{
		albums:   albums,
		photos:   photos,
		storage:  storage,
		queue:    queue,
		validate: dto.NewValidator(),
		logger:   log.WithComponent("AlbumAppService"),
	}
}

func (s *albumAppServiceImpl) CreateAlbum(ctx context.Context, hostID string, req *dto.CreateAlbumRequest) (*dto.AlbumResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.ErrInvalidRequest(MsgEmptyTitle)
	}

	album := models.NewAlbum(title, hostID)
	if err := s.albums.Create(ctx, album); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Album created",
		logger.String("album_id", album.ID.String()),
		logger.String("host_id", hostID),
	)
	resp := dto.NewAlbumResponse(album)
	return &resp, nil
}

func (s *albumAppServiceImpl) ListAlbums(ctx context.Context, hostID string) ([]dto.AlbumResponse, error) {
	albums, err := s.albums.ListByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AlbumResponse, 0, len(albums))
	for _, a := range albums {
		resp = append(resp, dto.NewAlbumResponse(a))
	}
	return resp, nil
}

func (s *albumAppServiceImpl) CreateUploadURLs(ctx context.Context, hostID string, albumID uuid.UUID, req *dto.UploadURLRequest) ([]dto.UploadURLResponse, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}

	if len(req.FileSizes) == 0 || len(req.FileSizes) > constants.MaxUploadBatch {
		return nil, errors.ErrInvalidRequest(MsgUploadCount)
	}
	for _, size := range req.FileSizes {
		if size <= 0 || size > constants.MaxPhotoBytes {
			return nil, errors.ErrInvalidRequest(MsgUploadSize)
		}
	}

	total, err := s.photos.CountByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if total >= constants.MaxPhotosPerUser {
		return nil, errors.ErrQuotaExceeded(fmt.Sprintf(msgQuotaReachedFormat, constants.MaxPhotosPerUser))
	}
	allowed := len(req.FileSizes)
	if remaining := constants.MaxPhotosPerUser - total; int64(allowed) > remaining {
		allowed = int(remaining)
	}

	urls := make([]dto.UploadURLResponse, 0, allowed)
	for _, size := range req.FileSizes[:allowed] {
		key := dto.NewStorageKey(albumID)
		u, err := s.storage.PresignUpload(ctx, key, size)
		if err != nil {
			return nil, err
		}
		urls = append(urls, dto.UploadURLResponse{UploadURL: u, StorageURL: key})
	}
	return urls, nil
}

func (s *albumAppServiceImpl) SavePhotos(ctx context.Context, hostID string, albumID uuid.UUID, req *dto.SavePhotosRequest) (*dto.MessageResponse, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}

	incoming := len(req.Photos)
	if incoming == 0 || incoming > constants.MaxUploadBatch {
		return nil, errors.ErrInvalidRequest(MsgUploadCount)
	}

	total, err := s.photos.CountByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if total+int64(incoming) > constants.MaxPhotosPerUser {
		return nil, errors.ErrQuotaExceeded(fmt.Sprintf(msgQuotaExceededFormat, incoming, total, constants.MaxPhotosPerUser))
	}

	validated := make([]string, 0, incoming)
	for _, item := range req.Photos {
		if err := s.validate.Var(item.StorageURL, dto.TagStorageKey); err != nil || !dto.KeyInAlbum(item.StorageURL, albumID) {
			s.cleanup(ctx, validated)
			return nil, errors.ErrInvalidRequest(MsgInvalidPhotoRef)
		}

		size, err := s.storage.ObjectSize(ctx, item.StorageURL)
		if err != nil && !errors.Is(err, errors.CodeNotFound) {
			s.cleanup(ctx, validated)
			return nil, err
		}
		validated = append(validated, item.StorageURL)
		if err != nil || size <= 0 || size > constants.MaxPhotoBytes {
			s.cleanup(ctx, validated)
			return nil, errors.ErrInvalidRequest(MsgPhotoValidation)
		}
	}

	batch := make([]*models.Photo, 0, incoming)
	for _, item := range req.Photos {
		p := models.NewPhoto(albumID, item.StorageURL)
		if item.IsPublic {
			p.AccessMode = constants.AccessModePublic
		}
		batch = append(batch, p)
	}
	if err := s.photos.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	for _, p := range batch {
		if !p.IsPublic() {
			s.enqueue(ctx, p)
		}
	}
	s.logger.Info(ctx, "Photos saved",
		logger.String("album_id", albumID.String()),
		logger.Int("count", len(batch)),
	)
	return &dto.MessageResponse{Message: fmt.Sprintf(msgSavedFormat, len(batch))}, nil
}

func (s *albumAppServiceImpl) ListPhotos(ctx context.Context, hostID string, albumID uuid.UUID) ([]dto.PhotoResponse, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	faces, err := s.photos.FacesByPhotoIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.PhotoResponse, 0, len(photos))
	for _, p := range photos {
		viewURL, err := s.storage.ViewURL(ctx, p.StorageKey)
		if err != nil {
			return nil, err
		}
		resp = append(resp, dto.NewPhotoResponse(p, viewURL, faces[p.ID]))
	}
	return resp, nil
}

func (s *albumAppServiceImpl) DeletePhoto(ctx context.Context, hostID string, albumID, photoID uuid.UUID) (*dto.MessageResponse, error) {
	photo, err := s.photoInOwnedAlbum(ctx, hostID, albumID, photoID)
	if err != nil {
		return nil, err
	}

	if err := s.photos.Delete(ctx, photo.ID); err != nil {
		return nil, err
	}
	// The record is gone; an orphaned object is only logged.
	if err := s.storage.DeleteObject(ctx, photo.StorageKey); err != nil {
		s.logger.Warn(ctx, "Photo object left behind", logger.String("key", photo.StorageKey), logger.Err(err))
	}
	return &dto.MessageResponse{Message: MsgPhotoRemoved}, nil
}

func (s *albumAppServiceImpl) DeleteAlbum(ctx context.Context, hostID string, albumID uuid.UUID) (*dto.MessageResponse, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		keys = append(keys, p.StorageKey)
	}
	if err := s.storage.DeleteObjects(ctx, keys); err != nil {
		return nil, err
	}
	if err := s.albums.Delete(ctx, albumID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Album deleted",
		logger.String("album_id", albumID.String()),
		logger.Int("photos", len(photos)),
	)
	return &dto.MessageResponse{Message: MsgAlbumDeleted}, nil
}

func (s *albumAppServiceImpl) SetPhotoPrivacy(ctx context.Context, hostID string, albumID, photoID uuid.UUID, makePublic bool) (*dto.PrivacyResponse, error) {
	photo, err := s.photoInOwnedAlbum(ctx, hostID, albumID, photoID)
	if err != nil {
		return nil, err
	}

	next := accessModeFor(makePublic)
	if err := s.photos.UpdateAccessMode(ctx, photo.ID, next); err != nil {
		return nil, err
	}
	if needsReprocessing(photo, next) {
		s.enqueue(ctx, photo)
	}
	return &dto.PrivacyResponse{Message: MsgPrivacyUpdated, Updated: 1}, nil
}

func (s *albumAppServiceImpl) SetAlbumPrivacy(ctx context.Context, hostID string, albumID uuid.UUID, makePublic bool) (*dto.PrivacyResponse, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}

	next := accessModeFor(makePublic)
	var reprocess []*models.Photo
	if next == constants.AccessModeProtected {
		public, err := s.photos.ListByAlbumAndMode(ctx, albumID, constants.AccessModePublic)
		if err != nil {
			return nil, err
		}
		for _, p := range public {
			if needsReprocessing(p, next) {
				reprocess = append(reprocess, p)
			}
		}
	}

	updated, err := s.photos.SetAccessMode(ctx, albumID, next)
	if err != nil {
		return nil, err
	}
	for _, p := range reprocess {
		s.enqueue(ctx, p)
	}
	return &dto.PrivacyResponse{Message: MsgPrivacyUpdated, Updated: updated}, nil
}

func (s *albumAppServiceImpl) ownedAlbum(ctx context.Context, hostID string, albumID uuid.UUID) (*models.Album, error) {
	album, err := s.albums.FindByID(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if !album.OwnedBy(hostID) {
		s.logger.Warn(ctx, "Album access denied",
			logger.String("album_id", albumID.String()),
			logger.String("host_id", hostID),
		)
		return nil, errors.ErrForbidden()
	}
	return album, nil
}

func (s *albumAppServiceImpl) photoInOwnedAlbum(ctx context.Context, hostID string, albumID, photoID uuid.UUID) (*models.Photo, error) {
	if _, err := s.ownedAlbum(ctx, hostID, albumID); err != nil {
		return nil, err
	}
	photo, err := s.photos.FindByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.AlbumID != albumID {
		return nil, errors.ErrInvalidRequest(MsgPhotoNotInAlbum)
	}
	return photo, nil
}

// enqueue hands a photo to the face worker. The photo is already saved, so a failure is logged
// and the photo stays unprocessed.
func (s *albumAppServiceImpl) enqueue(ctx context.Context, p *models.Photo) {
	job := models.PhotoJob{PhotoID: p.ID.String(), StorageURL: p.StorageKey}
	if err := s.queue.EnqueuePhoto(ctx, job); err != nil {
		s.logger.Error(ctx, "Failed to enqueue photo", err, logger.String("photo_id", job.PhotoID))
	}
}

func (s *albumAppServiceImpl) cleanup(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.storage.DeleteObjects(ctx, keys); err != nil {
		s.logger.Warn(ctx, "Failed to clean up rejected uploads", logger.Int("count", len(keys)), logger.Err(err))
	}
}

func accessModeFor(makePublic bool) constants.AccessMode {
	if makePublic {
		return constants.AccessModePublic
	}
	return constants.AccessModeProtected
}

// needsReprocessing: public photos skip face detection, so going back to PROTECTED before the
// worker has seen the photo requires a new job.
func needsReprocessing(p *models.Photo, next constants.AccessMode) bool {
	return p.IsPublic() && next == constants.AccessModeProtected && !p.Processed
}
