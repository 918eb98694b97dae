package dto

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// TagStorageKey validates object keys of the form albums/<uuid>/<uuid>.jpg.
const TagStorageKey = "storagekey"

var storageKeyPattern = regexp.MustCompile(`^albums/[0-9a-fA-F-]{36}/[0-9a-fA-F-]{36}\.jpg$`)

// RegisterValidators adds the API's custom tags to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation(TagStorageKey, func(fl validator.FieldLevel) bool {
		return storageKeyPattern.MatchString(fl.Field().String())
	})
}

// NewValidator returns a validator with the custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

// AlbumKeyPrefix is the prefix every object of albumID lives under.
func AlbumKeyPrefix(albumID uuid.UUID) string {
	return constants.ObjectKeyPrefix + "/" + albumID.String() + "/"
}

// NewStorageKey returns a fresh object key inside albumID.
func NewStorageKey(albumID uuid.UUID) string {
	return AlbumKeyPrefix(albumID) + uuid.NewString() + ".jpg"
}

// KeyInAlbum reports whether key sits directly under albumID's prefix.
func KeyInAlbum(key string, albumID uuid.UUID) bool {
	return strings.HasPrefix(key, AlbumKeyPrefix(albumID))
}
