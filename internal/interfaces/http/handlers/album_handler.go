package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grabpic/grabpic-api/internal/application/dto"
	"github.com/grabpic/grabpic-api/internal/application/service"
	domainservice "github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/interfaces/http/middleware"
	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/errors"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// AlbumHandler 相册 HTTP 处理器
// Every route expects RequireJWT to have run.
type AlbumHandler struct {
	albums service.AlbumAppService
	bots   domainservice.BotVerifier
	logger logger.Logger
}

// NewAlbumHandler 创建相册处理器
func NewAlbumHandler(albums service.AlbumAppService, bots domainservice.BotVerifier, log logger.Logger) *AlbumHandler {
	return &AlbumHandler{
		albums: albums,
		bots:   bots,
		logger: log.WithComponent("AlbumHandler"),
	}
}

// CreateAlbum 创建相册
// POST /api/albums
func (h *AlbumHandler) CreateAlbum(c *gin.Context) {
	ctx := c.Request.Context()

	human, err := h.bots.Verify(ctx, c.GetHeader(constants.HeaderTurnstileToken), middleware.ClientIdentity(c))
	if err != nil {
		h.logger.Warn(ctx, "Bot check unavailable", logger.Err(err))
	}
	if !human {
		RespondError(c, h.logger, errors.ErrBotDetected())
		return
	}

	var req dto.CreateAlbumRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	resp, err := h.albums.CreateAlbum(ctx, middleware.HostID(c), &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListAlbums 列出当前用户的相册
// GET /api/albums
func (h *AlbumHandler) ListAlbums(c *gin.Context) {
	resp, err := h.albums.ListAlbums(c.Request.Context(), middleware.HostID(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateUploadURLs
// POST /api/albums/:albumId/upload-urls
func (h *AlbumHandler) CreateUploadURLs(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	var req dto.UploadURLRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	resp, err := h.albums.CreateUploadURLs(c.Request.Context(), middleware.HostID(c), albumID, &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SavePhotos
// POST /api/albums/:albumId/photos
func (h *AlbumHandler) SavePhotos(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	var req dto.SavePhotosRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	resp, err := h.albums.SavePhotos(c.Request.Context(), middleware.HostID(c), albumID, &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListPhotos
// GET /api/albums/:albumId/photos
func (h *AlbumHandler) ListPhotos(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	resp, err := h.albums.ListPhotos(c.Request.Context(), middleware.HostID(c), albumID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePhoto
// DELETE /api/albums/:albumId/photos/:photoId
func (h *AlbumHandler) DeletePhoto(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	photoID, ok := uuidParam(c, h.logger, "photoId")
	if !ok {
		return
	}
	resp, err := h.albums.DeletePhoto(c.Request.Context(), middleware.HostID(c), albumID, photoID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteAlbum
// DELETE /api/albums/:albumId
func (h *AlbumHandler) DeleteAlbum(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	resp, err := h.albums.DeleteAlbum(c.Request.Context(), middleware.HostID(c), albumID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetPhotoPrivacy
// PUT /api/albums/:albumId/photos/:photoId/privacy?makePublic=bool
func (h *AlbumHandler) SetPhotoPrivacy(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	photoID, ok := uuidParam(c, h.logger, "photoId")
	if !ok {
		return
	}
	makePublic, ok := h.makePublic(c)
	if !ok {
		return
	}
	resp, err := h.albums.SetPhotoPrivacy(c.Request.Context(), middleware.HostID(c), albumID, photoID, makePublic)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetAlbumPrivacy
// PATCH /api/albums/:albumId/privacy?makePublic=bool
func (h *AlbumHandler) SetAlbumPrivacy(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	makePublic, ok := h.makePublic(c)
	if !ok {
		return
	}
	resp, err := h.albums.SetAlbumPrivacy(c.Request.Context(), middleware.HostID(c), albumID, makePublic)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AlbumHandler) makePublic(c *gin.Context) (bool, bool) {
	var q dto.PrivacyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondError(c, h.logger, errors.ErrInvalidRequest("").WithCause(err))
		return false, false
	}
	return *q.MakePublic, true
}

func uuidParam(c *gin.Context, log logger.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, log, errors.ErrInvalidRequest("").WithCause(err))
		return uuid.Nil, false
	}
	return id, true
}
