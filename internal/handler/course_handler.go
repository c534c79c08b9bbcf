package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduflow-app/eduflow-api/internal/middleware"
	"github.com/eduflow-app/eduflow-api/internal/service"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/response"
)

// CourseHandler exposes the authoring side of the marketplace.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// Create godoc
// @Summary Create a draft course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Partially update an owned course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
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
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), claims, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListMine godoc
// @Summary List the caller's courses with dashboard aggregates
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructor/courses [get]
func (h *CourseHandler) ListMine(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.courses.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// AddModule godoc
// @Summary Add a module to an owned course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/modules [post]
func (h *CourseHandler) AddModule(c *gin.Context) {
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
	var req service.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.courses.AddModule(c.Request.Context(), claims, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// UpdateModule godoc
// @Summary Rename or reorder a module
// @Tags Courses
// @Accept json
// @Produce json
// @Param moduleID path int true "Module ID"
// @Param payload body service.UpdateModuleRequest true "Module payload"
// @Success 200 {object} response.Envelope
// @Router /modules/{moduleID} [patch]
func (h *CourseHandler) UpdateModule(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	moduleID, err := pathID(c, "moduleID")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.courses.UpdateModule(c.Request.Context(), claims, moduleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// DeleteModule godoc
// @Summary Delete a module and its lessons
// @Tags Courses
// @Param moduleID path int true "Module ID"
// @Success 204
// @Router /modules/{moduleID} [delete]
func (h *CourseHandler) DeleteModule(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	moduleID, err := pathID(c, "moduleID")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.DeleteModule(c.Request.Context(), claims, moduleID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddLesson godoc
// @Summary Add a lesson to a module
// @Tags Courses
// @Accept json
// @Produce json
// @Param moduleID path int true "Module ID"
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Router /modules/{moduleID}/lessons [post]
func (h *CourseHandler) AddLesson(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	moduleID, err := pathID(c, "moduleID")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.courses.AddLesson(c.Request.Context(), claims, moduleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Tags Courses
// @Param lessonID path int true "Lesson ID"
// @Success 204
// @Router /lessons/{lessonID} [delete]
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	lessonID, err := pathID(c, "lessonID")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.DeleteLesson(c.Request.Context(), claims, lessonID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddResource godoc
// @Summary Attach a resource to an owned course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.CreateResourceRequest true "Resource payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/resources [post]
func (h *CourseHandler) AddResource(c *gin.Context) {
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
	var req service.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resource, err := h.courses.AddResource(c.Request.Context(), claims, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resource)
}

// DeleteResource godoc
// @Summary Remove a resource from an owned course
// @Tags Courses
// @Param id path int true "Course ID"
// @Param resourceID path int true "Resource ID"
// @Success 204
// @Router /courses/{id}/resources/{resourceID} [delete]
func (h *CourseHandler) DeleteResource(c *gin.Context) {
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
	resourceID, err := pathID(c, "resourceID")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.DeleteResource(c.Request.Context(), claims, courseID, resourceID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ScheduleLiveClass godoc
// @Summary Schedule a live session on an owned course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.ScheduleLiveClassRequest true "Live class payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/live-classes [post]
func (h *CourseHandler) ScheduleLiveClass(c *gin.Context) {
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
	var req service.ScheduleLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	liveClass, err := h.courses.ScheduleLiveClass(c.Request.Context(), claims, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, liveClass)
}

// ListLiveClasses godoc
// @Summary List a course's live sessions
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/live-classes [get]
func (h *CourseHandler) ListLiveClasses(c *gin.Context) {
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
	classes, err := h.courses.ListLiveClasses(c.Request.Context(), claims, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// RosterCSV godoc
// @Summary Export an owned course's roster as CSV
// @Tags Courses
// @Produce text/csv
// @Param id path int true "Course ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/roster.csv [get]
func (h *CourseHandler) RosterCSV(c *gin.Context) {
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
	csvBytes, err := h.courses.RosterCSV(c.Request.Context(), claims, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=roster-%d.csv", courseID))
	c.Data(http.StatusOK, "text/csv", csvBytes)
}
