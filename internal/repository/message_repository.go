package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduflow-app/eduflow-api/internal/models"
)

// MessageRepository stores direct messages. The conversation read model
// is assembled by the service from the latest-message and unread-count
// queries here plus a batch user fetch.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message; read defaults to false.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (sender_id, receiver_id, course_id, content, read, created_at)
        VALUES ($1, $2, $3, $4, FALSE, $5)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		msg.SenderID, msg.ReceiverID, msg.CourseID, msg.Content, msg.CreatedAt,
	).Scan(&msg.ID); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListLatestPerPeer returns the newest message of every conversation the
// user takes part in, most recent conversation first.
func (r *MessageRepository) ListLatestPerPeer(ctx context.Context, userID string) ([]models.Message, error) {
	const query = `SELECT DISTINCT ON (peer) m.id, m.sender_id, m.receiver_id, m.course_id, m.content, m.read, m.created_at
        FROM (
            SELECT *, CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer
            FROM messages
            WHERE sender_id = $1 OR receiver_id = $1
        ) m
        ORDER BY peer, m.created_at DESC, m.id DESC`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, userID); err != nil {
		return nil, fmt.Errorf("list latest messages: %w", err)
	}
	return msgs, nil
}

// CountUnreadByPeer returns, per sender, how many of their messages the
// user has not read yet.
func (r *MessageRepository) CountUnreadByPeer(ctx context.Context, userID string) (map[string]int, error) {
	const query = `SELECT sender_id, COUNT(*) AS unread
        FROM messages
        WHERE receiver_id = $1 AND read = FALSE
        GROUP BY sender_id`
	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var senderID string
		var unread int
		if err := rows.Scan(&senderID, &unread); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[senderID] = unread
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unread counts: %w", err)
	}
	return counts, nil
}

// ListBetween returns the full conversation between two users in
// chronological order.
func (r *MessageRepository) ListBetween(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	const query = `SELECT id, sender_id, receiver_id, course_id, content, read, created_at
        FROM messages
        WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
        ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, userID, peerID); err != nil {
		return nil, fmt.Errorf("list conversation messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags everything the peer sent to the user as read.
func (r *MessageRepository) MarkRead(ctx context.Context, userID, peerID string) error {
	const query = `UPDATE messages SET read = TRUE WHERE receiver_id = $1 AND sender_id = $2 AND read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, peerID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}
