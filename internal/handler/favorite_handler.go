package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduflow-app/eduflow-api/internal/middleware"
	"github.com/eduflow-app/eduflow-api/internal/service"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/response"
)

// FavoriteHandler exposes saved-course endpoints.
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler constructs FavoriteHandler.
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// Save godoc
// @Summary Save a course
// @Tags Favorites
// @Param id path int true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /favorites/{id} [post]
func (h *FavoriteHandler) Save(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courseID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.favorites.Save(c.Request.Context(), claims.UserID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"course_id": courseID})
}

// Unsave godoc
// @Summary Remove a saved course
// @Tags Favorites
// @Param id path int true "Course ID"
// @Success 204
// @Router /favorites/{id} [delete]
func (h *FavoriteHandler) Unsave(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courseID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.favorites.Unsave(c.Request.Context(), claims.UserID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List saved courses
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cards, err := h.favorites.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}
