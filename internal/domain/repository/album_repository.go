// Package repository 定义领域仓储接口
// 相册与照片仓储负责领域对象的持久化操作
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/pkg/constants"
)

// AlbumRepository 定义相册仓储接口
// 实现类：internal/infrastructure/persistence/postgres/album_repo_impl.go
type AlbumRepository interface {
	// Create 保存新相册
	Create(ctx context.Context, album *models.Album) error

	// FindByID 根据相册 ID 查询相册
	// 返回：
	//   - error: 相册不存在时返回 not_found 错误
	FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error)

	// ListByHost returns the host's albums, newest first.
	ListByHost(ctx context.Context, hostID string) ([]*models.Album, error)

	// Delete removes the album together with its photos and face embeddings in one transaction.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PhotoRepository 定义照片仓储接口
// 实现类：internal/infrastructure/persistence/postgres/photo_repo_impl.go
type PhotoRepository interface {
	// CreateBatch 批量保存照片记录（单事务）
	CreateBatch(ctx context.Context, photos []*models.Photo) error

	// FindByID 根据照片 ID 查询照片
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)

	// ListByAlbum returns every photo of the album, oldest first.
	ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]*models.Photo, error)

	// ListByAlbumAndMode returns the album's photos with the given access mode.
	ListByAlbumAndMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) ([]*models.Photo, error)

	// FindByIDsInAlbum returns the photos among ids that belong to albumID. Unknown ids are skipped.
	FindByIDsInAlbum(ctx context.Context, albumID uuid.UUID, ids []uuid.UUID) ([]*models.Photo, error)

	// CountByHost counts photos across every album owned by hostID.
	CountByHost(ctx context.Context, hostID string) (int64, error)

	// SetAccessMode switches every photo of the album to mode.
	SetAccessMode(ctx context.Context, albumID uuid.UUID, mode constants.AccessMode) (int64, error)

	// UpdateAccessMode switches one photo to mode.
	UpdateAccessMode(ctx context.Context, id uuid.UUID, mode constants.AccessMode) error

	// Delete removes a photo and its face embeddings.
	Delete(ctx context.Context, id uuid.UUID) error

	// FacesByPhotoIDs groups face boxes by photo.
	FacesByPhotoIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.FaceBox, error)
}
