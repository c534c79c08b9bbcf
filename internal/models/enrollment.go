package models

import "time"

// Enrollment links one student to one course. The (student_id, course_id)
// pair is unique; duplicate enrollment attempts are rejected by the
// database constraint, not by an application-level check.
type Enrollment struct {
	ID          int64      `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	CourseID    int64      `db:"course_id" json:"course_id"`
	EnrolledAt  time.Time  `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// Progress records per-lesson completion for one enrollment. One row per
// (enrollment_id, lesson_id); later writes overwrite in place.
type Progress struct {
	ID           int64      `db:"id" json:"id"`
	EnrollmentID int64      `db:"enrollment_id" json:"enrollment_id"`
	LessonID     int64      `db:"lesson_id" json:"lesson_id"`
	Completed    bool       `db:"completed" json:"completed"`
	WatchTime    int        `db:"watch_time" json:"watch_time"`
	LastAccessed time.Time  `db:"last_accessed" json:"last_accessed"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Review belongs to one enrollment, giving one review per student per
// course.
type Review struct {
	ID           int64     `db:"id" json:"id"`
	EnrollmentID int64     `db:"enrollment_id" json:"enrollment_id"`
	Rating       int       `db:"rating" json:"rating"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Favorite marks a course saved by a student.
type Favorite struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
