package models

import "time"

// CourseStatus represents the publication lifecycle of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// Valid reports whether the status is one of the known values.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived:
		return true
	}
	return false
}

// LessonType categorizes lesson content.
type LessonType string

const (
	LessonTypeVideo      LessonType = "video"
	LessonTypeDocument   LessonType = "document"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
)

// Valid reports whether the lesson type is one of the known values.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeVideo, LessonTypeDocument, LessonTypeQuiz, LessonTypeAssignment:
		return true
	}
	return false
}

// Course is owned by exactly one instructor.
type Course struct {
	ID           int64        `db:"id" json:"id"`
	InstructorID string       `db:"instructor_id" json:"instructor_id"`
	Title        string       `db:"title" json:"title"`
	Description  *string      `db:"description" json:"description,omitempty"`
	ThumbnailURL *string      `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Price        float64      `db:"price" json:"price"`
	Category     *string      `db:"category" json:"category,omitempty"`
	Level        *string      `db:"level" json:"level,omitempty"`
	Status       CourseStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	PublishedAt  *time.Time   `db:"published_at" json:"published_at,omitempty"`
}

// Module is an ordered section within a course.
type Module struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Lesson is an ordered unit within a module.
type Lesson struct {
	ID          int64      `db:"id" json:"id"`
	ModuleID    int64      `db:"module_id" json:"module_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Type        LessonType `db:"type" json:"type"`
	Content     *string    `db:"content" json:"content,omitempty"`
	Position    int        `db:"position" json:"position"`
	Duration    *string    `db:"duration" json:"duration,omitempty"`
	IsFree      bool       `db:"is_free" json:"is_free"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Resource is a downloadable attachment on a course.
type Resource struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Type      string    `db:"type" json:"type"`
	URL       string    `db:"url" json:"url"`
	Size      *string   `db:"size" json:"size,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LiveClass is a scheduled live session attached to a course.
type LiveClass struct {
	ID           int64     `db:"id" json:"id"`
	CourseID     int64     `db:"course_id" json:"course_id"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description,omitempty"`
	ScheduledFor time.Time `db:"scheduled_for" json:"scheduled_for"`
	Duration     *int      `db:"duration" json:"duration,omitempty"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	RecordingURL *string   `db:"recording_url" json:"recording_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
