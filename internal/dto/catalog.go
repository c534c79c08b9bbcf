package dto

import (
	"time"

	"github.com/eduflow-app/eduflow-api/internal/models"
)

// CourseCard is the marketplace listing row for a published course.
// Courses with no enrollments or reviews still appear with zero counts.
type CourseCard struct {
	ID               int64    `db:"id" json:"id"`
	Title            string   `db:"title" json:"title"`
	Description      *string  `db:"description" json:"description,omitempty"`
	ThumbnailURL     *string  `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Price            float64  `db:"price" json:"price"`
	Category         *string  `db:"category" json:"category,omitempty"`
	Level            *string  `db:"level" json:"level,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	InstructorID     string   `db:"instructor_id" json:"instructor_id"`
	InstructorName   string   `db:"instructor_name" json:"instructor_name"`
	InstructorAvatar *string  `db:"instructor_avatar" json:"instructor_avatar,omitempty"`
	StudentCount     int      `db:"student_count" json:"student_count"`
	AverageRating    *float64 `db:"average_rating" json:"average_rating,omitempty"`
}

// LessonSummary is the catalog-facing slice of a lesson.
type LessonSummary struct {
	ID       int64             `db:"id" json:"id"`
	ModuleID int64             `db:"module_id" json:"module_id"`
	Title    string            `db:"title" json:"title"`
	Type     models.LessonType `db:"type" json:"type"`
	Duration *string           `db:"duration" json:"duration,omitempty"`
	Position int               `db:"position" json:"position"`
	IsFree   bool              `db:"is_free" json:"is_free"`
}

// ModuleOutline is a module with its ordered lessons.
type ModuleOutline struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Lessons  []LessonSummary `json:"lessons"`
}

// CourseDetail is the single-course deep view.
type CourseDetail struct {
	ID               int64               `db:"id" json:"id"`
	Title            string              `db:"title" json:"title"`
	Description      *string             `db:"description" json:"description,omitempty"`
	ThumbnailURL     *string             `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Price            float64             `db:"price" json:"price"`
	Category         *string             `db:"category" json:"category,omitempty"`
	Level            *string             `db:"level" json:"level,omitempty"`
	Status           models.CourseStatus `db:"status" json:"status"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
	InstructorID     string              `db:"instructor_id" json:"instructor_id"`
	InstructorName   string              `db:"instructor_name" json:"instructor_name"`
	InstructorAvatar *string             `db:"instructor_avatar" json:"instructor_avatar,omitempty"`
	StudentCount     int                 `json:"student_count"`
	AverageRating    float64             `json:"average_rating"`
	Modules          []ModuleOutline     `json:"modules"`
	Resources        []models.Resource   `json:"resources"`
}
