package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
)

// CatalogRepository serves the read-only marketplace views. All listing
// queries are restricted to published courses and left-join enrollments
// and reviews so that courses without students still appear.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const courseCardColumns = `c.id, c.title, c.description, c.thumbnail_url, c.price, c.category, c.level, c.created_at,
        u.id AS instructor_id, u.name AS instructor_name, u.avatar_url AS instructor_avatar,
        COUNT(DISTINCT e.id) AS student_count,
        AVG(rv.rating) AS average_rating`

const courseCardJoins = `FROM courses c
        INNER JOIN users u ON u.id = c.instructor_id
        LEFT JOIN enrollments e ON e.course_id = c.id
        LEFT JOIN reviews rv ON rv.enrollment_id = e.id`

// ListPopular returns published courses ranked by enrollment count,
// ties broken by course id ascending for a deterministic order.
func (r *CatalogRepository) ListPopular(ctx context.Context, limit int) ([]dto.CourseCard, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE c.status = $1
        GROUP BY c.id, u.id
        ORDER BY COUNT(DISTINCT e.id) DESC, c.id ASC
        LIMIT $2`, courseCardColumns, courseCardJoins)

	var cards []dto.CourseCard
	if err := r.db.SelectContext(ctx, &cards, query, models.CourseStatusPublished, limit); err != nil {
		return nil, fmt.Errorf("list popular courses: %w", err)
	}
	return cards, nil
}

// ListNew returns published courses ranked by creation time descending.
func (r *CatalogRepository) ListNew(ctx context.Context, limit int) ([]dto.CourseCard, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE c.status = $1
        GROUP BY c.id, u.id
        ORDER BY c.created_at DESC, c.id ASC
        LIMIT $2`, courseCardColumns, courseCardJoins)

	var cards []dto.CourseCard
	if err := r.db.SelectContext(ctx, &cards, query, models.CourseStatusPublished, limit); err != nil {
		return nil, fmt.Errorf("list new courses: %w", err)
	}
	return cards, nil
}

// FindHeader returns the base detail row for a single course, any status.
func (r *CatalogRepository) FindHeader(ctx context.Context, courseID int64) (*dto.CourseDetail, error) {
	const query = `SELECT c.id, c.title, c.description, c.thumbnail_url, c.price, c.category, c.level, c.status, c.created_at, c.updated_at,
        u.id AS instructor_id, u.name AS instructor_name, u.avatar_url AS instructor_avatar
        FROM courses c
        INNER JOIN users u ON u.id = c.instructor_id
        WHERE c.id = $1`
	var detail dto.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course header: %w", err)
	}
	return &detail, nil
}

// CountStudents returns the enrollment count for a course.
func (r *CatalogRepository) CountStudents(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// AverageRating returns the mean review rating for a course, 0 when the
// course has no reviews.
func (r *CatalogRepository) AverageRating(ctx context.Context, courseID int64) (float64, error) {
	const query = `SELECT COALESCE(AVG(rv.rating), 0)
        FROM reviews rv
        INNER JOIN enrollments e ON e.id = rv.enrollment_id
        WHERE e.course_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, courseID); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}

// ListModules returns a course's modules ordered by position, insertion
// order breaking ties.
func (r *CatalogRepository) ListModules(ctx context.Context, courseID int64) ([]models.Module, error) {
	const query = `SELECT id, course_id, title, position, created_at, updated_at FROM modules WHERE course_id = $1 ORDER BY position ASC, id ASC`
	var mods []models.Module
	if err := r.db.SelectContext(ctx, &mods, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return mods, nil
}

// ListLessonsByCourse returns every lesson in a course in outline order,
// in one query to avoid per-module fan-out.
func (r *CatalogRepository) ListLessonsByCourse(ctx context.Context, courseID int64) ([]dto.LessonSummary, error) {
	const query = `SELECT l.id, l.module_id, l.title, l.type, l.duration, l.position, l.is_free
        FROM lessons l
        INNER JOIN modules m ON m.id = l.module_id
        WHERE m.course_id = $1
        ORDER BY m.position ASC, m.id ASC, l.position ASC, l.id ASC`
	var lessons []dto.LessonSummary
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list course lessons: %w", err)
	}
	return lessons, nil
}

// ListResources returns a course's resources, newest first.
func (r *CatalogRepository) ListResources(ctx context.Context, courseID int64) ([]models.Resource, error) {
	const query = `SELECT id, course_id, title, type, url, size, created_at FROM resources WHERE course_id = $1 ORDER BY created_at DESC, id DESC`
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, courseID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}
