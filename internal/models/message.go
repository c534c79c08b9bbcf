package models

import "time"

// Message is a direct message between two users, optionally tied to a
// course context.
type Message struct {
	ID         int64     `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	CourseID   *int64    `db:"course_id" json:"course_id,omitempty"`
	Content    string    `db:"content" json:"content"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
