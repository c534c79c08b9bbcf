package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
)

// CourseRepository handles persistence for the authoring side of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a new course and fills in the generated id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}

	const query = `INSERT INTO courses (instructor_id, title, description, thumbnail_url, price, category, level, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		course.InstructorID, course.Title, course.Description, course.ThumbnailURL,
		course.Price, course.Category, course.Level, course.Status,
		course.CreatedAt, course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, instructor_id, title, description, thumbnail_url, price, category, level, status, created_at, updated_at, published_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// CourseUpdate carries partial course mutations; nil fields keep their
// stored values.
type CourseUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Price        *float64
	Category     *string
	Level        *string
	Status       *models.CourseStatus
	PublishedAt  *time.Time
}

// Update applies the non-nil fields of a CourseUpdate.
func (r *CourseRepository) Update(ctx context.Context, id int64, update CourseUpdate) error {
	sets := []string{"updated_at = $2"}
	args := []interface{}{id, time.Now().UTC()}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.ThumbnailURL != nil {
		add("thumbnail_url", *update.ThumbnailURL)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Level != nil {
		add("level", *update.Level)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.PublishedAt != nil {
		add("published_at", *update.PublishedAt)
	}

	query := fmt.Sprintf(`UPDATE courses SET %s WHERE id = $1`, strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ListByInstructor returns an instructor's courses with enrollment,
// earnings and rating aggregates, newest first.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]dto.InstructorCourse, error) {
	const query = `SELECT c.id, c.title, c.description, c.thumbnail_url, c.price, c.category, c.level, c.status, c.created_at, c.updated_at,
        COUNT(DISTINCT e.id) AS student_count,
        c.price * COUNT(DISTINCT e.id) AS total_earnings,
        AVG(rv.rating) AS average_rating
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        LEFT JOIN reviews rv ON rv.enrollment_id = e.id
        WHERE c.instructor_id = $1
        GROUP BY c.id
        ORDER BY c.created_at DESC, c.id ASC`
	var courses []dto.InstructorCourse
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// FindTitles returns course titles for a set of ids, keyed by id.
func (r *CourseRepository) FindTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, title FROM courses WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build course titles query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find course titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

// CreateModule appends a module to a course. When no position is given
// it lands after the current last module.
func (r *CourseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now

	const query = `INSERT INTO modules (course_id, title, position, created_at, updated_at)
        VALUES ($1, $2, COALESCE(NULLIF($3, -1), (SELECT COALESCE(MAX(position) + 1, 0) FROM modules WHERE course_id = $1)), $4, $5)
        RETURNING id, position`
	if err := r.db.QueryRowxContext(ctx, query,
		module.CourseID, module.Title, module.Position, module.CreatedAt, module.UpdatedAt,
	).Scan(&module.ID, &module.Position); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// FindModule returns a module by id.
func (r *CourseRepository) FindModule(ctx context.Context, id int64) (*models.Module, error) {
	const query = `SELECT id, course_id, title, position, created_at, updated_at FROM modules WHERE id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return &module, nil
}

// UpdateModule updates a module's title and position.
func (r *CourseRepository) UpdateModule(ctx context.Context, id int64, title string, position int) error {
	const query = `UPDATE modules SET title = $2, position = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, title, position, time.Now().UTC()); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// DeleteModule removes a module; its lessons cascade.
func (r *CourseRepository) DeleteModule(ctx context.Context, id int64) error {
	const query = `DELETE FROM modules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return nil
}

// CreateLesson appends a lesson to a module.
func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	if lesson.Type == "" {
		lesson.Type = models.LessonTypeVideo
	}

	const query = `INSERT INTO lessons (module_id, title, description, type, content, position, duration, is_free, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, -1), (SELECT COALESCE(MAX(position) + 1, 0) FROM lessons WHERE module_id = $1)), $7, $8, $9, $10)
        RETURNING id, position`
	if err := r.db.QueryRowxContext(ctx, query,
		lesson.ModuleID, lesson.Title, lesson.Description, lesson.Type, lesson.Content,
		lesson.Position, lesson.Duration, lesson.IsFree, lesson.CreatedAt, lesson.UpdatedAt,
	).Scan(&lesson.ID, &lesson.Position); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// FindLesson returns a lesson by id.
func (r *CourseRepository) FindLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	const query = `SELECT id, module_id, title, description, type, content, position, duration, is_free, created_at, updated_at FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// DeleteLesson removes a lesson; progress rows cascade.
func (r *CourseRepository) DeleteLesson(ctx context.Context, id int64) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// CreateResource attaches a resource to a course.
func (r *CourseRepository) CreateResource(ctx context.Context, res *models.Resource) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO resources (course_id, title, type, url, size, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		res.CourseID, res.Title, res.Type, res.URL, res.Size, res.CreatedAt,
	).Scan(&res.ID); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// DeleteResource removes a resource from a course. The course id guards
// against deleting another course's attachment.
func (r *CourseRepository) DeleteResource(ctx context.Context, id, courseID int64) error {
	const query = `DELETE FROM resources WHERE id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, courseID); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// CreateLiveClass schedules a live session on a course.
func (r *CourseRepository) CreateLiveClass(ctx context.Context, lc *models.LiveClass) error {
	now := time.Now().UTC()
	lc.CreatedAt = now
	lc.UpdatedAt = now

	const query = `INSERT INTO live_classes (course_id, title, description, scheduled_for, duration, room_id, recording_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		lc.CourseID, lc.Title, lc.Description, lc.ScheduledFor, lc.Duration,
		lc.RoomID, lc.RecordingURL, lc.CreatedAt, lc.UpdatedAt,
	).Scan(&lc.ID); err != nil {
		return fmt.Errorf("create live class: %w", err)
	}
	return nil
}

// ListLiveClasses returns a course's live sessions ordered by schedule.
func (r *CourseRepository) ListLiveClasses(ctx context.Context, courseID int64) ([]models.LiveClass, error) {
	const query = `SELECT id, course_id, title, description, scheduled_for, duration, room_id, recording_url, created_at, updated_at FROM live_classes WHERE course_id = $1 ORDER BY scheduled_for ASC, id ASC`
	var classes []models.LiveClass
	if err := r.db.SelectContext(ctx, &classes, query, courseID); err != nil {
		return nil, fmt.Errorf("list live classes: %w", err)
	}
	return classes, nil
}
