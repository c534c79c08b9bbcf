package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduflow-app/eduflow-api/internal/middleware"
	"github.com/eduflow-app/eduflow-api/internal/service"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/response"
)

// CatalogHandler exposes the public marketplace views.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Popular godoc
// @Summary List most-enrolled published courses
// @Tags Catalog
// @Produce json
// @Param limit query int false "Number of courses"
// @Success 200 {object} response.Envelope
// @Router /catalog/popular [get]
func (h *CatalogHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	response.JSON(c, http.StatusOK, h.catalog.Popular(c.Request.Context(), limit), nil)
}

// New godoc
// @Summary List newest published courses
// @Tags Catalog
// @Produce json
// @Param limit query int false "Number of courses"
// @Success 200 {object} response.Envelope
// @Router /catalog/new [get]
func (h *CatalogHandler) New(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	response.JSON(c, http.StatusOK, h.catalog.New(c.Request.Context(), limit), nil)
}

// Detail godoc
// @Summary Get a course with outline, resources and rating
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{id} [get]
func (h *CatalogHandler) Detail(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	viewerID := ""
	if claims := middleware.CurrentClaims(c); claims != nil {
		viewerID = claims.UserID
	}

	detail, err := h.catalog.Detail(c.Request.Context(), courseID, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
