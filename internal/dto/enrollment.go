package dto

import "time"

// EnrolledCourse is one row of a student's course list with aggregated
// progress. LastAccessed is nil when the enrollment has no progress rows.
type EnrolledCourse struct {
	EnrollmentID     int64      `db:"enrollment_id" json:"enrollment_id"`
	CourseID         int64      `db:"course_id" json:"course_id"`
	Title            string     `db:"title" json:"title"`
	ThumbnailURL     *string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Category         *string    `db:"category" json:"category,omitempty"`
	Level            *string    `db:"level" json:"level,omitempty"`
	InstructorName   string     `db:"instructor_name" json:"instructor_name"`
	InstructorAvatar *string    `db:"instructor_avatar" json:"instructor_avatar,omitempty"`
	EnrolledAt       time.Time  `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	TotalLessons     int        `db:"total_lessons" json:"total_lessons"`
	CompletedLessons int        `db:"completed_lessons" json:"completed_lessons"`
	Progress         int        `json:"progress"`
	LastAccessed     *time.Time `db:"last_accessed" json:"last_accessed,omitempty"`
}

// RosterRow is one enrolled student in an instructor's roster export.
type RosterRow struct {
	StudentName      string    `db:"student_name" json:"student_name"`
	StudentEmail     string    `db:"student_email" json:"student_email"`
	EnrolledAt       time.Time `db:"enrolled_at" json:"enrolled_at"`
	TotalLessons     int       `db:"total_lessons" json:"total_lessons"`
	CompletedLessons int       `db:"completed_lessons" json:"completed_lessons"`
}

// CompletionDetail feeds certificate rendering for one enrollment.
type CompletionDetail struct {
	EnrollmentID     int64      `db:"enrollment_id" json:"enrollment_id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	StudentName      string     `db:"student_name" json:"student_name"`
	CourseTitle      string     `db:"course_title" json:"course_title"`
	InstructorName   string     `db:"instructor_name" json:"instructor_name"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	TotalLessons     int        `db:"total_lessons" json:"total_lessons"`
	CompletedLessons int        `db:"completed_lessons" json:"completed_lessons"`
}

// InstructorCourse is one row of an instructor's dashboard listing.
type InstructorCourse struct {
	ID            int64      `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Description   *string    `db:"description" json:"description,omitempty"`
	ThumbnailURL  *string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Price         float64    `db:"price" json:"price"`
	Category      *string    `db:"category" json:"category,omitempty"`
	Level         *string    `db:"level" json:"level,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	StudentCount  int        `db:"student_count" json:"student_count"`
	TotalEarnings float64    `db:"total_earnings" json:"total_earnings"`
	AverageRating *float64   `db:"average_rating" json:"average_rating,omitempty"`
}
