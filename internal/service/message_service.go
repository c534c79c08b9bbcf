package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListLatestPerPeer(ctx context.Context, userID string) ([]models.Message, error)
	CountUnreadByPeer(ctx context.Context, userID string) (map[string]int, error)
	ListBetween(ctx context.Context, userID, peerID string) ([]models.Message, error)
	MarkRead(ctx context.Context, userID, peerID string) error
}

type userBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type courseTitleReader interface {
	FindTitles(ctx context.Context, ids []int64) (map[int64]string, error)
}

// SendMessageRequest is the payload for a direct message.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	CourseID   *int64 `json:"course_id" validate:"omitempty,gt=0"`
	Content    string `json:"content" validate:"required,min=1,max=5000"`
}

// MessageService serves the inbox read model and message writes. The
// conversation list is joined in memory from three batch reads so no
// per-conversation queries are issued.
type MessageService struct {
	repo      messageRepository
	users     userBatchReader
	courses   courseTitleReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs MessageService.
func NewMessageService(repo messageRepository, users userBatchReader, courses courseTitleReader, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, users: users, courses: courses, validator: validate, logger: logger}
}

// Conversations returns the caller's inbox, most recent first.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]dto.Conversation, error) {
	latest, err := s.repo.ListLatestPerPeer(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	unread, err := s.repo.CountUnreadByPeer(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}

	peerIDs := make([]string, 0, len(latest))
	courseIDs := make([]int64, 0, len(latest))
	for _, msg := range latest {
		peerIDs = append(peerIDs, peerOf(msg, userID))
		if msg.CourseID != nil {
			courseIDs = append(courseIDs, *msg.CourseID)
		}
	}
	peers, err := s.users.FindByIDs(ctx, peerIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load peers")
	}
	titles := map[int64]string{}
	if len(courseIDs) > 0 {
		titles, err = s.courses.FindTitles(ctx, courseIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course titles")
		}
	}

	conversations := make([]dto.Conversation, 0, len(latest))
	for _, msg := range latest {
		peerID := peerOf(msg, userID)
		peer, ok := peers[peerID]
		if !ok {
			// Peer deleted between queries; the cascade removes the
			// messages on the next read.
			continue
		}
		conv := dto.Conversation{
			PeerID:        peerID,
			PeerName:      peer.Name,
			PeerAvatar:    peer.AvatarURL,
			PeerRole:      string(peer.Role),
			CourseID:      msg.CourseID,
			LastMessage:   msg.Content,
			LastMessageAt: msg.CreatedAt,
			UnreadCount:   unread[peerID],
		}
		if msg.CourseID != nil {
			if title, ok := titles[*msg.CourseID]; ok {
				conv.CourseTitle = &title
			}
		}
		conversations = append(conversations, conv)
	}
	// The per-peer query returns rows grouped by peer; the inbox contract
	// is most recent conversation first.
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

// Messages returns the full thread with a peer and marks their messages
// read.
func (s *MessageService) Messages(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	msgs, err := s.repo.ListBetween(ctx, userID, peerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	if err := s.repo.MarkRead(ctx, userID, peerID); err != nil {
		s.logger.Warn("mark read failed", zap.String("peer_id", peerID), zap.Error(err))
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Send delivers a direct message.
func (s *MessageService) Send(ctx context.Context, senderID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if req.ReceiverID == senderID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	recipients, err := s.users.FindByIDs(ctx, []string{req.ReceiverID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve receiver")
	}
	if _, ok := recipients[req.ReceiverID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receiver not found")
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: req.ReceiverID, CourseID: req.CourseID, Content: req.Content}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return msg, nil
}

func peerOf(msg models.Message, userID string) string {
	if msg.SenderID == userID {
		return msg.ReceiverID
	}
	return msg.SenderID
}
