package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduflow-app/eduflow-api/internal/dto"
)

// FavoriteRepository manages a student's saved courses. The pair
// (student_id, course_id) carries a unique constraint so saving twice
// is rejected by the database.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs the repository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create saves a course for the student.
func (r *FavoriteRepository) Create(ctx context.Context, studentID string, courseID int64) error {
	const query = `INSERT INTO favorites (student_id, course_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("create favorite: %w", err)
	}
	return nil
}

// Delete removes a saved course. Returns sql.ErrNoRows when the course
// was not saved.
func (r *FavoriteRepository) Delete(ctx context.Context, studentID string, courseID int64) error {
	const query = `DELETE FROM favorites WHERE student_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListCards returns the student's saved courses as catalog cards,
// most recently saved first. Courses unpublished after saving are
// filtered out.
func (r *FavoriteRepository) ListCards(ctx context.Context, studentID string) ([]dto.CourseCard, error) {
	query := `SELECT ` + courseCardColumns + `
        FROM favorites f
        INNER JOIN courses c ON c.id = f.course_id
        INNER JOIN users u ON u.id = c.instructor_id
        LEFT JOIN enrollments e ON e.course_id = c.id
        LEFT JOIN reviews rv ON rv.enrollment_id = e.id
        WHERE f.student_id = $1 AND c.status = 'published'
        GROUP BY c.id, u.id, f.created_at
        ORDER BY f.created_at DESC, c.id ASC`
	var cards []dto.CourseCard
	if err := r.db.SelectContext(ctx, &cards, query, studentID); err != nil {
		return nil, fmt.Errorf("list favorite courses: %w", err)
	}
	return cards, nil
}
