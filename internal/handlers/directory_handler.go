package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/internal/models"
	"github.com/jmiseikis/site-api/internal/services"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
)

const directoryCacheControl = "public, max-age=300"

type DirectoryHandler struct {
	service services.DirectoryServiceInterface
}

func NewDirectoryHandler(service services.DirectoryServiceInterface) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// ListEvents handles GET /api/v1/directory/events
func (h *DirectoryHandler) ListEvents(c *gin.Context) {
	var filter models.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidQuery, apperrors.InvalidInputError(err.Error()))
		return
	}

	resp, err := h.service.ListEvents(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusBadGateway, msgDirectoryFailed, err)
		return
	}

	c.Header("Cache-Control", directoryCacheControl)
	c.JSON(http.StatusOK, resp)
}

// EventICS handles GET /api/v1/directory/events/:slug/ics
func (h *DirectoryHandler) EventICS(c *gin.Context) {
	slug := c.Param("slug")

	file, err := h.service.EventICS(c.Request.Context(), slug)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			respondError(c, http.StatusNotFound, msgEventNotFound, err)
			return
		}
		respondError(c, http.StatusBadGateway, msgDirectoryFailed, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", file.Content)
}

// ListFunds handles GET /api/v1/directory/vcs
func (h *DirectoryHandler) ListFunds(c *gin.Context) {
	var filter models.FundFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidQuery, apperrors.InvalidInputError(err.Error()))
		return
	}

	resp, err := h.service.ListFunds(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusBadGateway, msgDirectoryFailed, err)
		return
	}

	c.Header("Cache-Control", directoryCacheControl)
	c.JSON(http.StatusOK, resp)
}
