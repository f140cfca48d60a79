package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
	"github.com/mediakeep/mediakeep/internal/watchstatus/service"
	"github.com/mediakeep/mediakeep/pkg/errors"
	"github.com/mediakeep/mediakeep/pkg/interfaces"
)

// statusUpdateFn is the shared shape of the four per-entity update operations.
type statusUpdateFn func(ctx context.Context, profileID, entityID int64, status domain.Status) (*domain.StatusUpdateResult, error)

// checkFn is the shared shape of the two reconciliation operations.
type checkFn func(ctx context.Context, profileID, entityID int64) (*domain.StatusUpdateResult, error)

// Handler exposes the watch-status operations as a JSON HTTP API.
type Handler struct {
	svc    service.Service
	logger interfaces.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc service.Service, logger interfaces.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(router *gin.Engine) {
	v1 := router.Group("/v1/profiles/:profileID")
	v1.PUT("/episodes/:id/status", h.updateStatus(h.svc.UpdateEpisodeWatchStatus))
	v1.PUT("/seasons/:id/status", h.updateStatus(h.svc.UpdateSeasonWatchStatus))
	v1.PUT("/shows/:id/status", h.updateStatus(h.svc.UpdateShowWatchStatus))
	v1.PUT("/movies/:id/status", h.updateStatus(h.svc.UpdateMovieWatchStatus))
	v1.POST("/seasons/:id/status/check", h.check(h.svc.CheckAndUpdateSeasonWatchStatus))
	v1.POST("/shows/:id/status/check", h.check(h.svc.CheckAndUpdateShowWatchStatus))
	v1.POST("/shows/:id/favorite", h.favoriteShow)
	v1.POST("/movies/:id/favorite", h.favoriteMovie)
	v1.POST("/new-content", h.newContent)
}

type statusRequest struct {
	Status domain.Status `json:"status" binding:"required"`
}

type newContentRequest struct {
	ShowIDs []int64 `json:"show_ids"`
}

func (h *Handler) updateStatus(fn statusUpdateFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, entityID, ok := h.pathIDs(c)
		if !ok {
			return
		}

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, errors.BadRequest("invalid request body"))
			return
		}

		result, err := fn(c.Request.Context(), profileID, entityID, req.Status)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) check(fn checkFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, entityID, ok := h.pathIDs(c)
		if !ok {
			return
		}

		result, err := fn(c.Request.Context(), profileID, entityID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) favoriteShow(c *gin.Context) {
	profileID, showID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	created, err := h.svc.InitializeShowStatuses(c.Request.Context(), profileID, showID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *Handler) favoriteMovie(c *gin.Context) {
	profileID, movieID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	if err := h.svc.InitializeMovieStatus(c.Request.Context(), profileID, movieID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) newContent(c *gin.Context) {
	profileID, err := strconv.ParseInt(c.Param("profileID"), 10, 64)
	if err != nil {
		h.writeError(c, errors.BadRequest("invalid profile id"))
		return
	}

	var req newContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errors.BadRequest("invalid request body"))
		return
	}

	result, svcErr := h.svc.HandleNewContent(c.Request.Context(), profileID, req.ShowIDs)
	if svcErr != nil {
		h.writeError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// pathIDs parses the profile and entity IDs from the route.
func (h *Handler) pathIDs(c *gin.Context) (int64, int64, bool) {
	profileID, err := strconv.ParseInt(c.Param("profileID"), 10, 64)
	if err != nil {
		h.writeError(c, errors.BadRequest("invalid profile id"))
		return 0, 0, false
	}
	entityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.writeError(c, errors.BadRequest("invalid entity id"))
		return 0, 0, false
	}
	return profileID, entityID, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.IsBadRequest(err):
		status = http.StatusBadRequest
	case errors.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", interfaces.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
