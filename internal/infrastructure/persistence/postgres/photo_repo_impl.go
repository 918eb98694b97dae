package postgres

import (
	"context"
	goerrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/repository"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// PhotoRepoImpl implements PhotoRepository using gorm.
type PhotoRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewPhotoRepository creates a new gorm-backed photo repository.
func NewPhotoRepository(db *gorm.DB, log logger.Logger) repository.PhotoRepository {
	return &PhotoRepoImpl{
		db:     db,
		logger: log.WithComponent("PhotoRepository"),
	}
}

// CreateBatch saves all photos or none.
func (r *PhotoRepoImpl) CreateBatch(ctx context.Context, photos []*models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&photos).Error; err != nil {
		if goerrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrInvalidRequest("Photo already saved.").WithCause(err)
		}
		r.logger.Error(ctx, "Failed to create photos", err, logger.Int("count", len(photos)))
		return errors.ErrInternal(err)
	}
	return nil
}

func (r *PhotoRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("Photo not found.")
		}
		r.logger.Error(ctx, "Failed to find photo", err, logger.String("photo_id", id.String()))
		return nil, errors.ErrInternal(err)
	}
	return &photo, nil
}

func (r *PhotoRepoImpl) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := r.db.WithContext(ctx).
		Where("album_id = ?", albumID).
		Order("created_at ASC").
		Find(&photos).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list photos", err, logger.String("album_id", albumID.String()))
		return nil, errors.ErrInternal(err)
	}
	return photos, nil
}

func (r *PhotoRepoImpl) ListByAlbumAndMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := r.db.WithContext(ctx).
		Where("album_id = ? AND access_mode = ?", albumID, mode).
		Order("created_at ASC").
		Find(&photos).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list photos by mode", err,
			logger.String("album_id", albumID.String()),
			logger.String("mode", string(mode)),
		)
		return nil, errors.ErrInternal(err)
	}
	return photos, nil
}

func (r *PhotoRepoImpl) FindByIDsInAlbum(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error) {
	if len(ids) == 0 {
		return []*models.Photo{}, nil
	}
	var photos []*models.Photo
	err := r.db.WithContext(ctx).
		Where("album_id = ? AND id IN ?", albumID, ids).
		Order("created_at ASC").
		Find(&photos).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to find photos", err, logger.String("album_id", albumID.String()))
		return nil, errors.ErrInternal(err)
	}
	return photos, nil
}

func (r *PhotoRepoImpl) CountByHost(ctx context.Context, hostID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Joins("JOIN albums ON albums.id = photos.album_id").
		Where("albums.host_id = ?", hostID).
		Count(&count).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to count photos", err, logger.String("host_id", hostID))
		return 0, errors.ErrInternal(err)
	}
	return count, nil
}

func (r *PhotoRepoImpl) SetAccessMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("album_id = ?", albumID).
		Update("access_mode", mode)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update access mode", result.Error,
			logger.String("album_id", albumID.String()),
			logger.String("mode", string(mode)),
		)
		return 0, errors.ErrInternal(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *PhotoRepoImpl) UpdateAccessMode(ctx context.Context, id uuid.UUID, mode constants.AccessMode) error {
	result := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", id).
		Update("access_mode", mode)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update photo access mode", result.Error, logger.String("photo_id", id.String()))
		return errors.ErrInternal(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound("Photo not found.")
	}
	return nil
}

// Delete removes a photo and its embeddings.
func (r *PhotoRepoImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", id).Delete(&models.PhotoEmbedding{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Photo{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrNotFound("Photo not found.")
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		r.logger.Error(ctx, "Failed to delete photo", err, logger.String("photo_id", id.String()))
		return errors.ErrInternal(err)
	}
	return nil
}

// FacesByPhotoIDs 按照片分组返回人脸框
func (r *PhotoRepoImpl) FacesByPhotoIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.FaceBox, error) {
	faces := make(map[uuid.UUID][]models.FaceBox, len(ids))
	if len(ids) == 0 {
		return faces, nil
	}

	var embeddings []models.PhotoEmbedding
	if err := r.db.WithContext(ctx).Where("photo_id IN ?", ids).Find(&embeddings).Error; err != nil {
		r.logger.Error(ctx, "Failed to load face boxes", err, logger.Int("photos", len(ids)))
		return nil, errors.ErrInternal(err)
	}
	for _, e := range embeddings {
		faces[e.PhotoID] = append(faces[e.PhotoID], e.BoxArea)
	}
	return faces, nil
}
