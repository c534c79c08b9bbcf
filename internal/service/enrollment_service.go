package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	"github.com/eduflow-app/eduflow-api/internal/repository"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/export"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	ListSummariesByStudent(ctx context.Context, studentID string) ([]dto.EnrolledCourse, error)
	UpsertProgress(ctx context.Context, p *models.Progress) error
	LessonInCourse(ctx context.Context, lessonID, courseID int64) (bool, error)
	CompletionCounts(ctx context.Context, enrollmentID int64) (total, completed int, err error)
	MarkCompleted(ctx context.Context, enrollmentID int64, ts time.Time) error
	CreateReview(ctx context.Context, review *models.Review) error
	CompletionDetail(ctx context.Context, enrollmentID int64) (*dto.CompletionDetail, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type certificateRenderer interface {
	Render(cert export.Certificate) ([]byte, error)
}

// EnrollRequest starts an enrollment.
type EnrollRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// ProgressRequest records one lesson interaction.
type ProgressRequest struct {
	Completed bool `json:"completed"`
	WatchTime int  `json:"watch_time" validate:"gte=0"`
}

// ReviewRequest rates a course through an enrollment.
type ReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// EnrollmentService orchestrates enrollment, progress and completion
// workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	certs     certificateRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, certs certificateRenderer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, certs: certs, validator: validate, logger: logger}
}

// Enroll registers the student on a published course. Duplicate
// enrollments are rejected by the database's unique constraint rather
// than a lookup, so concurrent requests cannot slip past the check.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	enrollment := &models.Enrollment{StudentID: studentID, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// ListEnrolled returns the student's courses with computed progress
// percentages.
func (s *EnrollmentService) ListEnrolled(ctx context.Context, studentID string) ([]dto.EnrolledCourse, error) {
	summaries, err := s.repo.ListSummariesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	for i := range summaries {
		summaries[i].Progress = progressPercent(summaries[i].TotalLessons, summaries[i].CompletedLessons)
	}
	if summaries == nil {
		summaries = []dto.EnrolledCourse{}
	}
	return summaries, nil
}

// RecordProgress upserts one lesson's progress for the caller's
// enrollment. When the write completes the course, the enrollment's
// completion timestamp is stamped once.
func (s *EnrollmentService) RecordProgress(ctx context.Context, userID string, enrollmentID, lessonID int64, req ProgressRequest) (*models.Progress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}

	enrollment, err := s.ownedEnrollment(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	inCourse, err := s.repo.LessonInCourse(ctx, lessonID, enrollment.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve lesson")
	}
	if !inCourse {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found in course")
	}

	now := time.Now().UTC()
	progress := &models.Progress{
		EnrollmentID: enrollmentID,
		LessonID:     lessonID,
		Completed:    req.Completed,
		WatchTime:    req.WatchTime,
		LastAccessed: now,
	}
	if req.Completed {
		progress.CompletedAt = &now
	}
	if err := s.repo.UpsertProgress(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progress")
	}

	if req.Completed {
		total, completed, err := s.repo.CompletionCounts(ctx, enrollmentID)
		if err != nil {
			s.logger.Warn("completion check failed", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
			return progress, nil
		}
		if total > 0 && completed >= total {
			if err := s.repo.MarkCompleted(ctx, enrollmentID, now); err != nil {
				s.logger.Warn("completion stamp failed", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
			}
		}
	}
	return progress, nil
}

// SubmitReview records the enrollment's single review.
func (s *EnrollmentService) SubmitReview(ctx context.Context, userID string, enrollmentID int64, req ReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	if _, err := s.ownedEnrollment(ctx, userID, enrollmentID); err != nil {
		return nil, err
	}

	review := &models.Review{EnrollmentID: enrollmentID, Rating: req.Rating, Comment: req.Comment}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save review")
	}
	return review, nil
}

// Certificate renders the completion certificate PDF. The enrollment
// must belong to the caller and every lesson must be completed.
func (s *EnrollmentService) Certificate(ctx context.Context, userID string, enrollmentID int64) ([]byte, error) {
	if _, err := s.ownedEnrollment(ctx, userID, enrollmentID); err != nil {
		return nil, err
	}

	detail, err := s.repo.CompletionDetail(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion detail")
	}
	if progressPercent(detail.TotalLessons, detail.CompletedLessons) < 100 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course not completed")
	}

	cert := export.Certificate{
		StudentName:    detail.StudentName,
		CourseTitle:    detail.CourseTitle,
		InstructorName: detail.InstructorName,
	}
	if detail.CompletedAt != nil {
		cert.CompletedAt = *detail.CompletedAt
	}
	pdf, err := s.certs.Render(cert)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return pdf, nil
}

func (s *EnrollmentService) ownedEnrollment(ctx context.Context, userID string, enrollmentID int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no permission")
	}
	return enrollment, nil
}

// progressPercent is the canonical completion formula: zero for courses
// without lessons, otherwise the rounded percentage.
func progressPercent(total, completed int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
