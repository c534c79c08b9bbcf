package dto

import "time"

// Conversation is one row of a user's inbox: the peer, the optional
// course context, and the most recent message.
type Conversation struct {
	PeerID        string    `json:"peer_id"`
	PeerName      string    `json:"peer_name"`
	PeerAvatar    *string   `json:"peer_avatar,omitempty"`
	PeerRole      string    `json:"peer_role"`
	CourseID      *int64    `json:"course_id,omitempty"`
	CourseTitle   *string   `json:"course_title,omitempty"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}
