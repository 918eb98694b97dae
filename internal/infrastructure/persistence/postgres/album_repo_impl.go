package postgres

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/repository"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// AlbumRepoImpl implements AlbumRepository using gorm.
type AlbumRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAlbumRepository creates a new gorm-backed album repository.
func NewAlbumRepository(db *gorm.DB, log logger.Logger) repository.AlbumRepository {
	return &AlbumRepoImpl{
		db:     db,
		logger: log.WithComponent("AlbumRepository"),
	}
}

// Create saves a new album.
func (r *AlbumRepoImpl) Create(ctx context.Context, album *models.Album) error {
	startTime := time.Now()

	if err := r.db.WithContext(ctx).Create(album).Error; err != nil {
		r.logger.Error(ctx, "Failed to create album", err,
			logger.String("album_id", album.ID.String()),
			logger.String("host_id", album.HostID),
		)
		return errors.ErrInternal(err)
	}

	r.logger.Info(ctx, "Album created successfully",
		logger.String("album_id", album.ID.String()),
		logger.String("host_id", album.HostID),
		logger.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return nil
}

// FindByID loads an album.
func (r *AlbumRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	var album models.Album
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&album).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("Album not found.")
		}
		r.logger.Error(ctx, "Failed to find album", err, logger.String("album_id", id.String()))
		return nil, errors.ErrInternal(err)
	}
	return &album, nil
}

// ListByHost returns the host's albums, newest first.
func (r *AlbumRepoImpl) ListByHost(ctx context.Context, hostID string) ([]*models.Album, error) {
	var albums []*models.Album
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&albums).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list albums", err, logger.String("host_id", hostID))
		return nil, errors.ErrInternal(err)
	}
	return albums, nil
}

// Delete removes the album, its photos and their embeddings in one transaction.
func (r *AlbumRepoImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photoIDs := tx.Model(&models.Photo{}).Select("id").Where("album_id = ?", id)
		if err := tx.Where("photo_id IN (?)", photoIDs).Delete(&models.PhotoEmbedding{}).Error; err != nil {
			return err
		}
		if err := tx.Where("album_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Album{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrNotFound("Album not found.")
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		r.logger.Error(ctx, "Failed to delete album", err, logger.String("album_id", id.String()))
		return errors.ErrInternal(err)
	}

	r.logger.Info(ctx, "Album deleted", logger.String("album_id", id.String()))
	return nil
}
