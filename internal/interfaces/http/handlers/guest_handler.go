package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grabpic/grabpic-api/internal/application/dto"
	"github.com/grabpic/grabpic-api/internal/application/service"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// GuestHandler serves album visitors. No authentication.
type GuestHandler struct {
	guests service.GuestAppService
	logger logger.Logger
}

// NewGuestHandler 创建访客处理器
func NewGuestHandler(guests service.GuestAppService, log logger.Logger) *GuestHandler {
	return &GuestHandler{
		guests: guests,
		logger: log.WithComponent("GuestHandler"),
	}
}

// AlbumDetails
// GET /api/albums/:albumId/guest/details
func (h *GuestHandler) AlbumDetails(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	resp, err := h.guests.AlbumDetails(c.Request.Context(), albumID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchResults takes the bare JSON array of photo ids returned by the face search.
// POST /api/albums/:albumId/guest/search-results
func (h *GuestHandler) SearchResults(c *gin.Context) {
	albumID, ok := uuidParam(c, h.logger, "albumId")
	if !ok {
		return
	}
	var ids dto.SearchResultIDs
	if !BindJSON(c, h.logger, &ids) {
		return
	}
	resp, err := h.guests.SearchResults(c.Request.Context(), albumID, ids)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
