// Package dto holds the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/internal/domain/models"
)

// CreateAlbumRequest 创建相册请求
type CreateAlbumRequest struct {
	Title string `json:"title" binding:"required,min=1,max=120"`
}

// UploadURLRequest asks for one presigned PUT per declared file size.
type UploadURLRequest struct {
	FileSizes []int64 `json:"fileSizes"`
}

// SavePhotosRequest registers objects that were uploaded through presigned URLs.
type SavePhotosRequest struct {
	Photos []SavePhotoItem `json:"photos"`
}

// SavePhotoItem is one uploaded object. StorageURL is the object key returned with the upload URL.
type SavePhotoItem struct {
	StorageURL string `json:"storageUrl"`
	IsPublic   bool   `json:"isPublic"`
}

// PrivacyQuery carries the privacy toggle's query string.
type PrivacyQuery struct {
	MakePublic *bool `form:"makePublic" binding:"required"`
}

// AlbumResponse 相册响应
type AlbumResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// NewAlbumResponse converts a domain album.
func NewAlbumResponse(a *models.Album) AlbumResponse {
	return AlbumResponse{
		ID:        a.ID.String(),
		Title:     a.Title,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// PhotoResponse is one photo as seen by hosts and guests. Guests always get zero faces.
type PhotoResponse struct {
	ID        string           `json:"id"`
	ViewURL   string           `json:"viewUrl"`
	IsPublic  bool             `json:"isPublic"`
	Processed bool             `json:"processed"`
	FaceCount int              `json:"faceCount"`
	Boxes     []models.FaceBox `json:"boxes"`
}

// NewPhotoResponse converts a domain photo with its signed view URL and face boxes.
func NewPhotoResponse(p *models.Photo, viewURL string, boxes []models.FaceBox) PhotoResponse {
	if boxes == nil {
		boxes = []models.FaceBox{}
	}
	return PhotoResponse{
		ID:        p.ID.String(),
		ViewURL:   viewURL,
		IsPublic:  p.IsPublic(),
		Processed: p.Processed,
		FaceCount: len(boxes),
		Boxes:     boxes,
	}
}

// GuestAlbumResponse is the public view of an album.
type GuestAlbumResponse struct {
	Title        string          `json:"title"`
	PublicPhotos []PhotoResponse `json:"publicPhotos"`
}

// UploadURLResponse pairs a presigned PUT with the key to send back when saving.
type UploadURLResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageURL string `json:"storageUrl"`
}

// PrivacyResponse reports how many photos changed mode.
type PrivacyResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SearchResultIDs is the guest search-results body: the photo ids matched by face search.
type SearchResultIDs []uuid.UUID
