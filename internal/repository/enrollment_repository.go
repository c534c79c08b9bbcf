package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
)

// EnrollmentRepository handles enrollments, per-lesson progress and
// reviews.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts an enrollment. The unique (student_id, course_id)
// constraint rejects duplicates; callers detect that with
// IsUniqueViolation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (student_id, course_id, enrolled_at, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		enrollment.StudentID, enrollment.CourseID, enrollment.EnrolledAt, enrollment.ExpiresAt,
	).Scan(&enrollment.ID); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, completed_at, expires_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// IsEnrolled reports whether the student has an enrollment in the
// course.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID string, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListSummariesByStudent returns one aggregated row per enrollment:
// course card data, lesson totals, completed counts and the most recent
// lesson access. A single grouped query replaces the per-enrollment
// fan-out the naive shape would need.
func (r *EnrollmentRepository) ListSummariesByStudent(ctx context.Context, studentID string) ([]dto.EnrolledCourse, error) {
	const query = `SELECT e.id AS enrollment_id, e.course_id, e.enrolled_at, e.completed_at,
        c.title, c.thumbnail_url, c.category, c.level,
        u.name AS instructor_name, u.avatar_url AS instructor_avatar,
        COALESCE(lc.total_lessons, 0) AS total_lessons,
        COALESCE(pc.completed_lessons, 0) AS completed_lessons,
        pc.last_accessed
        FROM enrollments e
        INNER JOIN courses c ON c.id = e.course_id
        INNER JOIN users u ON u.id = c.instructor_id
        LEFT JOIN (
            SELECT m.course_id, COUNT(l.id) AS total_lessons
            FROM modules m
            INNER JOIN lessons l ON l.module_id = m.id
            GROUP BY m.course_id
        ) lc ON lc.course_id = e.course_id
        LEFT JOIN (
            SELECT p.enrollment_id,
                   COUNT(*) FILTER (WHERE p.completed) AS completed_lessons,
                   MAX(p.last_accessed) AS last_accessed
            FROM progress p
            GROUP BY p.enrollment_id
        ) pc ON pc.enrollment_id = e.id
        WHERE e.student_id = $1`
	var rows []dto.EnrolledCourse
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment summaries: %w", err)
	}
	return rows, nil
}

// UpsertProgress writes a lesson's progress for an enrollment in one
// statement keyed on (enrollment_id, lesson_id). Watch time accumulates;
// completion never reverts and its timestamp is kept from the first
// completing write.
func (r *EnrollmentRepository) UpsertProgress(ctx context.Context, p *models.Progress) error {
	if p.LastAccessed.IsZero() {
		p.LastAccessed = time.Now().UTC()
	}
	const query = `INSERT INTO progress (enrollment_id, lesson_id, completed, watch_time, last_accessed, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (enrollment_id, lesson_id) DO UPDATE
        SET completed = progress.completed OR EXCLUDED.completed,
            watch_time = progress.watch_time + EXCLUDED.watch_time,
            last_accessed = EXCLUDED.last_accessed,
            completed_at = COALESCE(progress.completed_at, EXCLUDED.completed_at)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		p.EnrollmentID, p.LessonID, p.Completed, p.WatchTime, p.LastAccessed, p.CompletedAt,
	).Scan(&p.ID); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// LessonInCourse reports whether a lesson belongs to the given course.
func (r *EnrollmentRepository) LessonInCourse(ctx context.Context, lessonID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM lessons l INNER JOIN modules m ON m.id = l.module_id WHERE l.id = $1 AND m.course_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, lessonID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check lesson in course: %w", err)
	}
	return true, nil
}

// CompletionCounts returns total course lessons and completed lessons
// for one enrollment.
func (r *EnrollmentRepository) CompletionCounts(ctx context.Context, enrollmentID int64) (total, completed int, err error) {
	const query = `SELECT
        (SELECT COUNT(l.id)
         FROM lessons l
         INNER JOIN modules m ON m.id = l.module_id
         WHERE m.course_id = e.course_id) AS total,
        (SELECT COUNT(*)
         FROM progress p
         WHERE p.enrollment_id = e.id AND p.completed) AS completed
        FROM enrollments e
        WHERE e.id = $1`
	row := struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, enrollmentID); err != nil {
		return 0, 0, fmt.Errorf("completion counts: %w", err)
	}
	return row.Total, row.Completed, nil
}

// MarkCompleted stamps an enrollment's completion time once.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, enrollmentID int64, ts time.Time) error {
	const query = `UPDATE enrollments SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, ts); err != nil {
		return fmt.Errorf("mark enrollment completed: %w", err)
	}
	return nil
}

// CreateReview inserts the enrollment's review. The unique constraint
// on enrollment_id limits each enrollment to one review.
func (r *EnrollmentRepository) CreateReview(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	const query = `INSERT INTO reviews (enrollment_id, rating, comment, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		review.EnrollmentID, review.Rating, review.Comment, review.CreatedAt, review.UpdatedAt,
	).Scan(&review.ID); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListRoster returns each enrolled student with lesson totals for an
// instructor's roster export, grouped in one query.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, courseID int64) ([]dto.RosterRow, error) {
	const query = `SELECT u.name AS student_name, u.email AS student_email, e.enrolled_at,
        COALESCE(lc.total_lessons, 0) AS total_lessons,
        COALESCE(pc.completed_lessons, 0) AS completed_lessons
        FROM enrollments e
        INNER JOIN users u ON u.id = e.student_id
        LEFT JOIN (
            SELECT m.course_id, COUNT(l.id) AS total_lessons
            FROM modules m
            INNER JOIN lessons l ON l.module_id = m.id
            GROUP BY m.course_id
        ) lc ON lc.course_id = e.course_id
        LEFT JOIN (
            SELECT p.enrollment_id, COUNT(*) FILTER (WHERE p.completed) AS completed_lessons
            FROM progress p
            GROUP BY p.enrollment_id
        ) pc ON pc.enrollment_id = e.id
        WHERE e.course_id = $1
        ORDER BY e.enrolled_at ASC, e.id ASC`
	var rows []dto.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return rows, nil
}

// CompletionDetail returns the data behind a completion certificate.
func (r *EnrollmentRepository) CompletionDetail(ctx context.Context, enrollmentID int64) (*dto.CompletionDetail, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, e.completed_at,
        s.name AS student_name, c.title AS course_title, i.name AS instructor_name,
        (SELECT COUNT(l.id)
         FROM lessons l
         INNER JOIN modules m ON m.id = l.module_id
         WHERE m.course_id = e.course_id) AS total_lessons,
        (SELECT COUNT(*)
         FROM progress p
         WHERE p.enrollment_id = e.id AND p.completed) AS completed_lessons
        FROM enrollments e
        INNER JOIN users s ON s.id = e.student_id
        INNER JOIN courses c ON c.id = e.course_id
        INNER JOIN users i ON i.id = c.instructor_id
        WHERE e.id = $1`
	var detail dto.CompletionDetail
	if err := r.db.GetContext(ctx, &detail, query, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("completion detail: %w", err)
	}
	return &detail, nil
}
