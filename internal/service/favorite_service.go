package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	"github.com/eduflow-app/eduflow-api/internal/repository"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
)

type favoriteRepository interface {
	Create(ctx context.Context, studentID string, courseID int64) error
	Delete(ctx context.Context, studentID string, courseID int64) error
	ListCards(ctx context.Context, studentID string) ([]dto.CourseCard, error)
}

// FavoriteService manages a student's saved courses.
type FavoriteService struct {
	repo    favoriteRepository
	courses courseReader
	logger  *zap.Logger
}

// NewFavoriteService constructs FavoriteService.
func NewFavoriteService(repo favoriteRepository, courses courseReader, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{repo: repo, courses: courses, logger: logger}
}

// Save marks a published course as saved for the student.
func (s *FavoriteService) Save(ctx context.Context, studentID string, courseID int64) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusPublished {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	if err := s.repo.Create(ctx, studentID, courseID); err != nil {
		if repository.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "course already saved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save course")
	}
	return nil
}

// Unsave removes a saved course.
func (s *FavoriteService) Unsave(ctx context.Context, studentID string, courseID int64) error {
	if err := s.repo.Delete(ctx, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not saved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove saved course")
	}
	return nil
}

// List returns the student's saved courses as catalog cards.
func (s *FavoriteService) List(ctx context.Context, studentID string) ([]dto.CourseCard, error) {
	cards, err := s.repo.ListCards(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved courses")
	}
	if cards == nil {
		cards = []dto.CourseCard{}
	}
	return cards, nil
}
