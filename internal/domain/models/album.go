package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// Album is a host-owned collection of photos shared with guests.
type Album struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"size:120;not null"`
	HostID    string    `gorm:"size:255;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// NewAlbum creates a new album owned by hostID.
func NewAlbum(title, hostID string) *Album {
	return &Album{
		ID:        uuid.New(),
		Title:     title,
		HostID:    hostID,
		CreatedAt: time.Now().UTC(),
	}
}

// OwnedBy reports whether hostID owns the album.
func (a *Album) OwnedBy(hostID string) bool {
	return a.HostID == hostID
}

// Photo is one stored image of an album.
type Photo struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	AlbumID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	StorageKey string               `gorm:"size:512;not null;uniqueIndex"`
	AccessMode constants.AccessMode `gorm:"size:16;not null;default:PROTECTED"`
	Processed  bool                 `gorm:"not null;default:false"`
	CreatedAt  time.Time            `gorm:"not null"`
}

// NewPhoto creates a protected, unprocessed photo record for an uploaded object.
func NewPhoto(albumID uuid.UUID, storageKey string) *Photo {
	return &Photo{
		ID:         uuid.New(),
		AlbumID:    albumID,
		StorageKey: storageKey,
		AccessMode: constants.AccessModeProtected,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsPublic reports whether guests can list the photo without a face search.
func (p *Photo) IsPublic() bool {
	return p.AccessMode == constants.AccessModePublic
}

// FaceBox is the bounding box of one detected face, in pixels.
type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// PhotoEmbedding is one face found in a photo by the processing worker. The embedding vector
// itself is owned by the worker; the API only reads the boxes.
type PhotoEmbedding struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	PhotoID uuid.UUID `gorm:"type:uuid;not null;index"`
	BoxArea FaceBox   `gorm:"type:jsonb;serializer:json"`
}

// PhotoFaces summarizes the faces found in a photo.
type PhotoFaces struct {
	PhotoID uuid.UUID
	Boxes   []FaceBox
}
