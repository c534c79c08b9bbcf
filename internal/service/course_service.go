package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	"github.com/eduflow-app/eduflow-api/internal/repository"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/export"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Update(ctx context.Context, id int64, update repository.CourseUpdate) error
	ListByInstructor(ctx context.Context, instructorID string) ([]dto.InstructorCourse, error)
	CreateModule(ctx context.Context, module *models.Module) error
	FindModule(ctx context.Context, id int64) (*models.Module, error)
	UpdateModule(ctx context.Context, id int64, title string, position int) error
	DeleteModule(ctx context.Context, id int64) error
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	FindLesson(ctx context.Context, id int64) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, id int64) error
	CreateResource(ctx context.Context, res *models.Resource) error
	DeleteResource(ctx context.Context, id, courseID int64) error
	CreateLiveClass(ctx context.Context, lc *models.LiveClass) error
	ListLiveClasses(ctx context.Context, courseID int64) ([]models.LiveClass, error)
}

type rosterLister interface {
	ListRoster(ctx context.Context, courseID int64) ([]dto.RosterRow, error)
	IsEnrolled(ctx context.Context, studentID string, courseID int64) (bool, error)
}

type roleReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type browseCacheInvalidator interface {
	InvalidateBrowseCache(ctx context.Context)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// CreateCourseRequest is the authoring payload for a new course. New
// courses always start as drafts.
type CreateCourseRequest struct {
	Title        string   `json:"title" validate:"required,min=3,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitempty,url"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Category     *string  `json:"category" validate:"omitempty,max=100"`
	Level        *string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// UpdateCourseRequest carries a partial course mutation; absent fields
// keep their stored values.
type UpdateCourseRequest struct {
	Title        *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitempty,url"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Category     *string  `json:"category" validate:"omitempty,max=100"`
	Level        *string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Status       *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
}

// CreateModuleRequest adds a section to a course. Position -1 appends.
type CreateModuleRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

// UpdateModuleRequest renames or reorders a module.
type UpdateModuleRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Position int    `json:"position" validate:"gte=0"`
}

// CreateLessonRequest adds a lesson to a module.
type CreateLessonRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Type        string  `json:"type" validate:"omitempty,oneof=video document quiz assignment"`
	Content     *string `json:"content"`
	Position    *int    `json:"position" validate:"omitempty,gte=0"`
	Duration    *string `json:"duration" validate:"omitempty,max=20"`
	IsFree      bool    `json:"is_free"`
}

// CreateResourceRequest attaches a downloadable to a course. The
// resources table requires both type and url.
type CreateResourceRequest struct {
	Title string  `json:"title" validate:"required,min=1,max=200"`
	Type  string  `json:"type" validate:"required,max=50"`
	URL   string  `json:"url" validate:"required,url"`
	Size  *string `json:"size" validate:"omitempty,max=20"`
}

// ScheduleLiveClassRequest books a live session on a course.
type ScheduleLiveClassRequest struct {
	Title        string    `json:"title" validate:"required,min=1,max=200"`
	Description  *string   `json:"description" validate:"omitempty,max=10000"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Duration     *int      `json:"duration" validate:"omitempty,gt=0"`
	RoomID       *string   `json:"room_id" validate:"omitempty,max=100"`
}

// CourseService owns the authoring side of the marketplace. Every
// mutation beyond creation is gated on course ownership.
type CourseService struct {
	repo      courseRepository
	users     roleReader
	roster    rosterLister
	catalog   browseCacheInvalidator
	csv       csvRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, users roleReader, roster rosterLister, catalog browseCacheInvalidator, csv csvRenderer, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, users: users, roster: roster, catalog: catalog, csv: csv, validator: validate, logger: logger}
}

// Create opens a new draft course for an instructor. The role comes
// from the stored user row, not the token, so a demotion takes effect
// before the token expires.
func (s *CourseService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCourseRequest) (*models.Course, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleInstructor && user.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		InstructorID: claims.UserID,
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		Level:        req.Level,
		Status:       models.CourseStatusDraft,
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update applies a partial mutation to an owned course. The published
// timestamp is stamped on the first transition to published and never
// rewritten afterwards.
func (s *CourseService) Update(ctx context.Context, claims *models.JWTClaims, courseID int64, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.ownedCourse(ctx, claims, courseID)
	if err != nil {
		return nil, err
	}

	update := repository.CourseUpdate{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Price:        req.Price,
		Category:     req.Category,
		Level:        req.Level,
	}

	publishing := false
	if req.Status != nil {
		status := models.CourseStatus(*req.Status)
		update.Status = &status
		if status == models.CourseStatusPublished && course.Status != models.CourseStatusPublished {
			publishing = true
			if course.PublishedAt == nil {
				now := time.Now().UTC()
				update.PublishedAt = &now
			}
		}
	}

	if err := s.repo.Update(ctx, courseID, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	if publishing && s.catalog != nil {
		s.catalog.InvalidateBrowseCache(ctx)
	}

	updated, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload course")
	}
	return updated, nil
}

// ListMine returns the caller's courses with dashboard aggregates.
func (s *CourseService) ListMine(ctx context.Context, instructorID string) ([]dto.InstructorCourse, error) {
	courses, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []dto.InstructorCourse{}
	}
	return courses, nil
}

// AddModule appends or inserts a module into an owned course.
func (s *CourseService) AddModule(ctx context.Context, claims *models.JWTClaims, courseID int64, req CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}
	if _, err := s.ownedCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}

	module := &models.Module{CourseID: courseID, Title: req.Title, Position: -1}
	if req.Position != nil {
		module.Position = *req.Position
	}
	if err := s.repo.CreateModule(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	return module, nil
}

// UpdateModule renames or reorders an owned module.
func (s *CourseService) UpdateModule(ctx context.Context, claims *models.JWTClaims, moduleID int64, req UpdateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}
	module, err := s.ownedModule(ctx, claims, moduleID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateModule(ctx, moduleID, req.Title, req.Position); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update module")
	}
	module.Title = req.Title
	module.Position = req.Position
	return module, nil
}

// DeleteModule removes an owned module and its lessons.
func (s *CourseService) DeleteModule(ctx context.Context, claims *models.JWTClaims, moduleID int64) error {
	if _, err := s.ownedModule(ctx, claims, moduleID); err != nil {
		return err
	}
	if err := s.repo.DeleteModule(ctx, moduleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}
	return nil
}

// AddLesson appends or inserts a lesson into an owned module.
func (s *CourseService) AddLesson(ctx context.Context, claims *models.JWTClaims, moduleID int64, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if _, err := s.ownedModule(ctx, claims, moduleID); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		ModuleID:    moduleID,
		Title:       req.Title,
		Description: req.Description,
		Type:        models.LessonType(req.Type),
		Content:     req.Content,
		Position:    -1,
		Duration:    req.Duration,
		IsFree:      req.IsFree,
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// DeleteLesson removes an owned lesson.
func (s *CourseService) DeleteLesson(ctx context.Context, claims *models.JWTClaims, lessonID int64) error {
	lesson, err := s.repo.FindLesson(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if _, err := s.ownedModule(ctx, claims, lesson.ModuleID); err != nil {
		return err
	}
	if err := s.repo.DeleteLesson(ctx, lessonID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

// AddResource attaches a resource to an owned course.
func (s *CourseService) AddResource(ctx context.Context, claims *models.JWTClaims, courseID int64, req CreateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if _, err := s.ownedCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}

	res := &models.Resource{CourseID: courseID, Title: req.Title, Type: req.Type, URL: req.URL, Size: req.Size}
	if err := s.repo.CreateResource(ctx, res); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	return res, nil
}

// DeleteResource removes a resource from an owned course.
func (s *CourseService) DeleteResource(ctx context.Context, claims *models.JWTClaims, courseID, resourceID int64) error {
	if _, err := s.ownedCourse(ctx, claims, courseID); err != nil {
		return err
	}
	if err := s.repo.DeleteResource(ctx, resourceID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	return nil
}

// ScheduleLiveClass books a live session on an owned course.
func (s *CourseService) ScheduleLiveClass(ctx context.Context, claims *models.JWTClaims, courseID int64, req ScheduleLiveClassRequest) (*models.LiveClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid live class payload")
	}
	if _, err := s.ownedCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}

	lc := &models.LiveClass{
		CourseID:     courseID,
		Title:        req.Title,
		Description:  req.Description,
		ScheduledFor: req.ScheduledFor,
		Duration:     req.Duration,
		RoomID:       req.RoomID,
	}
	if err := s.repo.CreateLiveClass(ctx, lc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule live class")
	}
	return lc, nil
}

// ListLiveClasses returns a course's sessions ordered by schedule.
// Visible to the course owner, admins, and enrolled students only.
func (s *CourseService) ListLiveClasses(ctx context.Context, claims *models.JWTClaims, courseID int64) ([]models.LiveClass, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != claims.UserID && claims.Role != models.RoleAdmin {
		enrolled, err := s.roster.IsEnrolled(ctx, claims.UserID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no permission")
		}
	}

	classes, err := s.repo.ListLiveClasses(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list live classes")
	}
	if classes == nil {
		classes = []models.LiveClass{}
	}
	return classes, nil
}

// RosterCSV renders an owned course's enrolled students as a CSV export.
func (s *CourseService) RosterCSV(ctx context.Context, claims *models.JWTClaims, courseID int64) ([]byte, error) {
	if _, err := s.ownedCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}

	roster, err := s.roster.ListRoster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Enrolled", "Progress"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, row := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":  row.StudentName,
			"Email":    row.StudentEmail,
			"Enrolled": row.EnrolledAt.Format("2006-01-02"),
			"Progress": fmt.Sprintf("%d%%", progressPercent(row.TotalLessons, row.CompletedLessons)),
		})
	}
	return s.csv.Render(dataset)
}

func (s *CourseService) ownedCourse(ctx context.Context, claims *models.JWTClaims, courseID int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != claims.UserID && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no permission")
	}
	return course, nil
}

func (s *CourseService) ownedModule(ctx context.Context, claims *models.JWTClaims, moduleID int64) (*models.Module, error) {
	module, err := s.repo.FindModule(ctx, moduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if _, err := s.ownedCourse(ctx, claims, module.CourseID); err != nil {
		return nil, err
	}
	return module, nil
}
