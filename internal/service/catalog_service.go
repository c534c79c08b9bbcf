package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
)

type catalogRepository interface {
	ListPopular(ctx context.Context, limit int) ([]dto.CourseCard, error)
	ListNew(ctx context.Context, limit int) ([]dto.CourseCard, error)
	FindHeader(ctx context.Context, courseID int64) (*dto.CourseDetail, error)
	CountStudents(ctx context.Context, courseID int64) (int, error)
	AverageRating(ctx context.Context, courseID int64) (float64, error)
	ListModules(ctx context.Context, courseID int64) ([]models.Module, error)
	ListLessonsByCourse(ctx context.Context, courseID int64) ([]dto.LessonSummary, error)
	ListResources(ctx context.Context, courseID int64) ([]models.Resource, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CatalogConfig tunes the browse views.
type CatalogConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

const catalogCachePrefix = "catalog:browse"

// CatalogService serves the public marketplace views. Browse listings
// fail open: a storage error is logged and an empty list is returned so
// the landing page renders without course rails instead of erroring.
type CatalogService struct {
	repo   catalogRepository
	cache  cacheStore
	config CatalogConfig
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, cache cacheStore, config CatalogConfig, logger *zap.Logger) *CatalogService {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 6
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 50
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, config: config, logger: logger}
}

// Popular returns published courses ranked by enrollment count.
func (s *CatalogService) Popular(ctx context.Context, limit int) []dto.CourseCard {
	return s.browse(ctx, "popular", limit, s.repo.ListPopular)
}

// New returns the most recently created published courses.
func (s *CatalogService) New(ctx context.Context, limit int) []dto.CourseCard {
	return s.browse(ctx, "new", limit, s.repo.ListNew)
}

func (s *CatalogService) browse(ctx context.Context, view string, limit int, list func(context.Context, int) ([]dto.CourseCard, error)) []dto.CourseCard {
	limit = s.clampLimit(limit)
	key := fmt.Sprintf("%s:%s:%d", catalogCachePrefix, view, limit)

	if s.cache != nil {
		var cached []dto.CourseCard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	cards, err := list(ctx, limit)
	if err != nil {
		s.logger.Error("catalog listing failed", zap.String("view", view), zap.Error(err))
		return []dto.CourseCard{}
	}
	if cards == nil {
		cards = []dto.CourseCard{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cards, s.config.CacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return cards
}

// Detail returns the deep view of a single course. Unpublished courses
// are visible only to their owning instructor; everyone else gets a
// not-found so drafts do not leak through the public surface.
// Like the browse views it fails open: a storage error is logged and a
// nil detail is returned instead of an error, so only a genuinely
// unknown course surfaces as not-found.
func (s *CatalogService) Detail(ctx context.Context, courseID int64, viewerID string) (*dto.CourseDetail, error) {
	detail, err := s.repo.FindHeader(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		s.logger.Error("course detail lookup failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}
	if detail.Status != models.CourseStatusPublished && detail.InstructorID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	students, err := s.repo.CountStudents(ctx, courseID)
	if err != nil {
		s.logger.Error("student count failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}
	rating, err := s.repo.AverageRating(ctx, courseID)
	if err != nil {
		s.logger.Error("rating lookup failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}
	modules, err := s.repo.ListModules(ctx, courseID)
	if err != nil {
		s.logger.Error("module listing failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}
	lessons, err := s.repo.ListLessonsByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("lesson listing failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}
	resources, err := s.repo.ListResources(ctx, courseID)
	if err != nil {
		s.logger.Error("resource listing failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}

	detail.StudentCount = students
	detail.AverageRating = rating
	detail.Modules = assembleOutline(modules, lessons)
	detail.Resources = resources
	return detail, nil
}

// InvalidateBrowseCache drops all cached browse listings. Called when a
// course transitions to published so new courses show up promptly.
func (s *CatalogService) InvalidateBrowseCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCachePrefix+":*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *CatalogService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return limit
}

// assembleOutline groups lessons under their modules preserving the
// repository's outline order.
func assembleOutline(modules []models.Module, lessons []dto.LessonSummary) []dto.ModuleOutline {
	byModule := make(map[int64][]dto.LessonSummary, len(modules))
	for _, lesson := range lessons {
		byModule[lesson.ModuleID] = append(byModule[lesson.ModuleID], lesson)
	}

	outline := make([]dto.ModuleOutline, 0, len(modules))
	for _, module := range modules {
		entry := dto.ModuleOutline{
			ID:       module.ID,
			Title:    module.Title,
			Position: module.Position,
			Lessons:  byModule[module.ID],
		}
		if entry.Lessons == nil {
			entry.Lessons = []dto.LessonSummary{}
		}
		outline = append(outline, entry)
	}
	return outline
}
