package service

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/grabpic/grabpic-api/internal/application/dto"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service/mocks"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

type albumDeps struct {
	albums  *mocks.MockAlbumRepository
	photos  *mocks.MockPhotoRepository
	storage *mocks.MockObjectStorage
	queue   *mocks.MockPhotoQueue
	svc     AlbumAppService
}

func newAlbumDeps(t *testing.T) *albumDeps {
	d := &albumDeps{
		albums:  new(mocks.MockAlbumRepository),
		photos:  new(mocks.MockPhotoRepository),
		storage: new(mocks.MockObjectStorage),
		queue:   new(mocks.MockPhotoQueue),
	}
	d.svc = NewAlbumAppService(d.albums, d.photos, d.storage, d.queue, logger.NewNoopLogger())
	t.Cleanup(func() {
		d.albums.AssertExpectations(t)
		d.photos.AssertExpectations(t)
		d.storage.AssertExpectations(t)
		d.queue.AssertExpectations(t)
	})
	return d
}

func (d *albumDeps) owned(host string) *models.Album {
	a := models.NewAlbum("Wedding", host)
	d.albums.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	return a
}

func appCode(t *testing.T, err error) errors.Code {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code()
}

func TestAlbumAppService_CreateAlbum(t *testing.T) {
	ctx := context.Background()

	t.Run("should trim and save the title for the host", func(t *testing.T) {
		d := newAlbumDeps(t)
		d.albums.On("Create", ctx, mock.MatchedBy(func(a *models.Album) bool {
			return a.Title == "Graduation" && a.HostID == "host-1"
		})).Return(nil)

		resp, err := d.svc.CreateAlbum(ctx, "host-1", &dto.CreateAlbumRequest{Title: "  Graduation "})
		require.NoError(t, err)
		assert.Equal(t, "Graduation", resp.Title)
		assert.NotEmpty(t, resp.ID)
		assert.NotEmpty(t, resp.CreatedAt)
	})

	t.Run("should reject a blank title", func(t *testing.T) {
		d := newAlbumDeps(t)
		_, err := d.svc.CreateAlbum(ctx, "host-1", &dto.CreateAlbumRequest{Title: "   "})
		assert.Equal(t, errors.CodeInvalidRequest, appCode(t, err))
	})
}

func TestAlbumAppService_Ownership(t *testing.T) {
	ctx := context.Background()
	d := newAlbumDeps(t)
	album := d.owned("host-1")

	calls := map[string]func() error{
		"upload urls": func() error {
			_, err := d.svc.CreateUploadURLs(ctx, "intruder", album.ID, &dto.UploadURLRequest{FileSizes: []int64{1}})
			return err
		},
		"list photos": func() error {
			_, err := d.svc.ListPhotos(ctx, "intruder", album.ID)
			return err
		},
		"delete album": func() error {
			_, err := d.svc.DeleteAlbum(ctx, "intruder", album.ID)
			return err
		},
		"album privacy": func() error {
			_, err := d.svc.SetAlbumPrivacy(ctx, "intruder", album.ID, true)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			appErr, _ := errors.As(err)
			assert.Equal(t, errors.CodeForbidden, appErr.Code())
			assert.Equal(t, errors.MsgForbidden, appErr.Message())
		})
	}

	t.Run("missing album is not found", func(t *testing.T) {
		missing := uuid.New()
		d.albums.On("FindByID", mock.Anything, missing).Return(nil, errors.ErrNotFound("Album not found."))
		_, err := d.svc.ListPhotos(ctx, "host-1", missing)
		assert.Equal(t, errors.CodeNotFound, appCode(t, err))
	})
}

func TestAlbumAppService_CreateUploadURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("should presign one url per size under the album prefix", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(10), nil)
		d.storage.On("PresignUpload", ctx, mock.MatchedBy(func(k string) bool {
			return dto.KeyInAlbum(k, album.ID)
		}), mock.AnythingOfType("int64")).Return("https://s3.test/put", nil).Times(2)

		urls, err := d.svc.CreateUploadURLs(ctx, "host-1", album.ID, &dto.UploadURLRequest{FileSizes: []int64{100, 200}})
		require.NoError(t, err)
		require.Len(t, urls, 2)
		assert.NotEqual(t, urls[0].StorageURL, urls[1].StorageURL)
		assert.NoError(t, dto.NewValidator().Var(urls[0].StorageURL, dto.TagStorageKey))
		d.storage.AssertCalled(t, "PresignUpload", ctx, urls[0].StorageURL, int64(100))
		d.storage.AssertCalled(t, "PresignUpload", ctx, urls[1].StorageURL, int64(200))
	})

	t.Run("should truncate to the remaining quota", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("CountByHost", ctx, "host-1").Return(constants.MaxPhotosPerUser-1, nil)
		d.storage.On("PresignUpload", ctx, mock.Anything, int64(5)).Return("https://s3.test/put", nil).Once()

		urls, err := d.svc.CreateUploadURLs(ctx, "host-1", album.ID, &dto.UploadURLRequest{FileSizes: []int64{5, 6, 7}})
		require.NoError(t, err)
		assert.Len(t, urls, 1)
	})

	t.Run("should refuse when the quota is used up", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("CountByHost", ctx, "host-1").Return(constants.MaxPhotosPerUser, nil)

		_, err := d.svc.CreateUploadURLs(ctx, "host-1", album.ID, &dto.UploadURLRequest{FileSizes: []int64{5}})
		assert.Equal(t, errors.CodeQuotaExceeded, appCode(t, err))
	})

	invalid := map[string][]int64{
		"empty":         {},
		"too many":      make([]int64, constants.MaxUploadBatch+1),
		"zero size":     {0},
		"over 10 MB":    {constants.MaxPhotoBytes + 1},
		"negative size": {-1},
	}
	for name, sizes := range invalid {
		t.Run("should reject "+name, func(t *testing.T) {
			d := newAlbumDeps(t)
			album := d.owned("host-1")
			_, err := d.svc.CreateUploadURLs(ctx, "host-1", album.ID, &dto.UploadURLRequest{FileSizes: sizes})
			assert.Equal(t, errors.CodeInvalidRequest, appCode(t, err))
		})
	}
}

func TestAlbumAppService_SavePhotos(t *testing.T) {
	ctx := context.Background()

	t.Run("should save and enqueue protected photos only", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		k1, k2 := dto.NewStorageKey(album.ID), dto.NewStorageKey(album.ID)
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(0), nil)
		d.storage.On("ObjectSize", ctx, k1).Return(int64(1024), nil)
		d.storage.On("ObjectSize", ctx, k2).Return(int64(2048), nil)
		d.photos.On("CreateBatch", ctx, mock.MatchedBy(func(ps []*models.Photo) bool {
			return len(ps) == 2 && !ps[0].IsPublic() && ps[1].IsPublic() && ps[0].AlbumID == album.ID
		})).Return(nil)
		d.queue.On("EnqueuePhoto", ctx, mock.MatchedBy(func(j models.PhotoJob) bool {
			return j.StorageURL == k1 && j.PhotoID != ""
		})).Return(nil).Once()

		resp, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{
			{StorageURL: k1},
			{StorageURL: k2, IsPublic: true},
		}})
		require.NoError(t, err)
		assert.Equal(t, "Successfully saved 2 photos.", resp.Message)
	})

	t.Run("should keep going when the queue fails", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		k := dto.NewStorageKey(album.ID)
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(0), nil)
		d.storage.On("ObjectSize", ctx, k).Return(int64(1), nil)
		d.photos.On("CreateBatch", ctx, mock.Anything).Return(nil)
		d.queue.On("EnqueuePhoto", ctx, mock.Anything).Return(goerrors.New("broker down"))

		_, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{{StorageURL: k}}})
		assert.NoError(t, err)
	})

	t.Run("should clean up validated objects when a key is foreign", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		good := dto.NewStorageKey(album.ID)
		foreign := dto.NewStorageKey(uuid.New())
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(0), nil)
		d.storage.On("ObjectSize", ctx, good).Return(int64(10), nil)
		d.storage.On("DeleteObjects", ctx, []string{good}).Return(nil).Once()

		_, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{
			{StorageURL: good}, {StorageURL: foreign},
		}})
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, MsgInvalidPhotoRef, appErr.Message())
		d.photos.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("should clean up including the oversized object", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		k1, k2 := dto.NewStorageKey(album.ID), dto.NewStorageKey(album.ID)
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(0), nil)
		d.storage.On("ObjectSize", ctx, k1).Return(int64(10), nil)
		d.storage.On("ObjectSize", ctx, k2).Return(constants.MaxPhotoBytes+1, nil)
		d.storage.On("DeleteObjects", ctx, []string{k1, k2}).Return(nil).Once()

		_, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{
			{StorageURL: k1}, {StorageURL: k2},
		}})
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, MsgPhotoValidation, appErr.Message())
	})

	t.Run("should treat a missing object as a validation failure", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		k := dto.NewStorageKey(album.ID)
		d.photos.On("CountByHost", ctx, "host-1").Return(int64(0), nil)
		d.storage.On("ObjectSize", ctx, k).Return(int64(0), errors.ErrNotFound("Uploaded photo not found."))
		d.storage.On("DeleteObjects", ctx, []string{k}).Return(nil).Once()

		_, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{{StorageURL: k}}})
		assert.Equal(t, errors.CodeInvalidRequest, appCode(t, err))
	})

	t.Run("should enforce the quota across albums", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("CountByHost", ctx, "host-1").Return(constants.MaxPhotosPerUser-1, nil)

		_, err := d.svc.SavePhotos(ctx, "host-1", album.ID, &dto.SavePhotosRequest{Photos: []dto.SavePhotoItem{
			{StorageURL: dto.NewStorageKey(album.ID)}, {StorageURL: dto.NewStorageKey(album.ID)},
		}})
		assert.Equal(t, errors.CodeQuotaExceeded, appCode(t, err))
	})
}

func TestAlbumAppService_ListPhotos(t *testing.T) {
	ctx := context.Background()
	d := newAlbumDeps(t)
	album := d.owned("host-1")
	p1 := models.NewPhoto(album.ID, dto.NewStorageKey(album.ID))
	p2 := models.NewPhoto(album.ID, dto.NewStorageKey(album.ID))
	p2.AccessMode = constants.AccessModePublic
	p2.Processed = true
	box := models.FaceBox{X: 1, Y: 2, Width: 3, Height: 4}

	d.photos.On("ListByAlbum", ctx, album.ID).Return([]*models.Photo{p1, p2}, nil)
	d.photos.On("FacesByPhotoIDs", ctx, []uuid.UUID{p1.ID, p2.ID}).
		Return(map[uuid.UUID][]models.FaceBox{p1.ID: {box}}, nil)
	d.storage.On("ViewURL", ctx, p1.StorageKey).Return("https://view/1", nil)
	d.storage.On("ViewURL", ctx, p2.StorageKey).Return("https://view/2", nil)

	photos, err := d.svc.ListPhotos(ctx, "host-1", album.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, dto.PhotoResponse{
		ID: p1.ID.String(), ViewURL: "https://view/1", FaceCount: 1, Boxes: []models.FaceBox{box},
	}, photos[0])
	assert.True(t, photos[1].IsPublic)
	assert.True(t, photos[1].Processed)
	assert.Equal(t, 0, photos[1].FaceCount)
	assert.NotNil(t, photos[1].Boxes)
}

func TestAlbumAppService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete the record before the object", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		photo := models.NewPhoto(album.ID, dto.NewStorageKey(album.ID))
		d.photos.On("FindByID", ctx, photo.ID).Return(photo, nil)
		recordGone := false
		d.photos.On("Delete", ctx, photo.ID).Run(func(mock.Arguments) { recordGone = true }).Return(nil)
		d.storage.On("DeleteObject", ctx, photo.StorageKey).Run(func(mock.Arguments) {
			assert.True(t, recordGone)
		}).Return(goerrors.New("s3 flaked"))

		resp, err := d.svc.DeletePhoto(ctx, "host-1", album.ID, photo.ID)
		require.NoError(t, err)
		assert.Equal(t, MsgPhotoRemoved, resp.Message)
	})

	t.Run("should refuse a photo of another album", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		stranger := models.NewPhoto(uuid.New(), "k")
		d.photos.On("FindByID", ctx, stranger.ID).Return(stranger, nil)

		_, err := d.svc.DeletePhoto(ctx, "host-1", album.ID, stranger.ID)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, MsgPhotoNotInAlbum, appErr.Message())
	})

	t.Run("should delete objects then the album", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		p := models.NewPhoto(album.ID, dto.NewStorageKey(album.ID))
		d.photos.On("ListByAlbum", ctx, album.ID).Return([]*models.Photo{p}, nil)
		d.storage.On("DeleteObjects", ctx, []string{p.StorageKey}).Return(nil)
		d.albums.On("Delete", ctx, album.ID).Return(nil)

		resp, err := d.svc.DeleteAlbum(ctx, "host-1", album.ID)
		require.NoError(t, err)
		assert.Equal(t, MsgAlbumDeleted, resp.Message)
	})

	t.Run("should keep the album when objects cannot be removed", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("ListByAlbum", ctx, album.ID).Return([]*models.Photo{}, nil)
		d.storage.On("DeleteObjects", ctx, []string{}).Return(errors.ErrInternal(goerrors.New("denied")))

		_, err := d.svc.DeleteAlbum(ctx, "host-1", album.ID)
		assert.Equal(t, errors.CodeInternal, appCode(t, err))
		d.albums.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestAlbumAppService_Privacy(t *testing.T) {
	ctx := context.Background()

	t.Run("should re-enqueue an unprocessed photo made protected again", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		photo := models.NewPhoto(album.ID, dto.NewStorageKey(album.ID))
		photo.AccessMode = constants.AccessModePublic
		d.photos.On("FindByID", ctx, photo.ID).Return(photo, nil)
		d.photos.On("UpdateAccessMode", ctx, photo.ID, constants.AccessModeProtected).Return(nil)
		d.queue.On("EnqueuePhoto", ctx, models.PhotoJob{PhotoID: photo.ID.String(), StorageURL: photo.StorageKey}).Return(nil).Once()

		resp, err := d.svc.SetPhotoPrivacy(ctx, "host-1", album.ID, photo.ID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Updated)
	})

	t.Run("should not enqueue processed or already protected photos", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		processed := models.NewPhoto(album.ID, "a")
		processed.AccessMode = constants.AccessModePublic
		processed.Processed = true
		protected := models.NewPhoto(album.ID, "b")
		d.photos.On("FindByID", ctx, processed.ID).Return(processed, nil)
		d.photos.On("FindByID", ctx, protected.ID).Return(protected, nil)
		d.photos.On("UpdateAccessMode", ctx, mock.Anything, constants.AccessModeProtected).Return(nil)

		_, err := d.svc.SetPhotoPrivacy(ctx, "host-1", album.ID, processed.ID, false)
		require.NoError(t, err)
		_, err = d.svc.SetPhotoPrivacy(ctx, "host-1", album.ID, protected.ID, false)
		require.NoError(t, err)
		d.queue.AssertNotCalled(t, "EnqueuePhoto", mock.Anything, mock.Anything)
	})

	t.Run("should toggle the whole album", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		pending := models.NewPhoto(album.ID, "pending")
		pending.AccessMode = constants.AccessModePublic
		done := models.NewPhoto(album.ID, "done")
		done.AccessMode = constants.AccessModePublic
		done.Processed = true

		d.photos.On("ListByAlbumAndMode", ctx, album.ID, constants.AccessModePublic).Return([]*models.Photo{pending, done}, nil)
		d.photos.On("SetAccessMode", ctx, album.ID, constants.AccessModeProtected).Return(int64(3), nil)
		d.queue.On("EnqueuePhoto", ctx, models.PhotoJob{PhotoID: pending.ID.String(), StorageURL: "pending"}).Return(nil).Once()

		resp, err := d.svc.SetAlbumPrivacy(ctx, "host-1", album.ID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Updated)
	})

	t.Run("should make the whole album public without listing", func(t *testing.T) {
		d := newAlbumDeps(t)
		album := d.owned("host-1")
		d.photos.On("SetAccessMode", ctx, album.ID, constants.AccessModePublic).Return(int64(2), nil)

		resp, err := d.svc.SetAlbumPrivacy(ctx, "host-1", album.ID, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Updated)
	})
}
