package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
)

type mockMessageRepo struct {
	latest     []models.Message
	unread     map[string]int
	between    []models.Message
	markedRead []string
	sent       []models.Message
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	msg.ID = int64(len(m.sent) + 1)
	msg.CreatedAt = time.Now().UTC()
	m.sent = append(m.sent, *msg)
	return nil
}

func (m *mockMessageRepo) ListLatestPerPeer(ctx context.Context, userID string) ([]models.Message, error) {
	return m.latest, nil
}

func (m *mockMessageRepo) CountUnreadByPeer(ctx context.Context, userID string) (map[string]int, error) {
	return m.unread, nil
}

func (m *mockMessageRepo) ListBetween(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	return m.between, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, userID, peerID string) error {
	m.markedRead = append(m.markedRead, peerID)
	return nil
}

type mockUserBatch struct {
	users map[string]models.User
}

func (m *mockUserBatch) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := map[string]models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type mockTitleReader struct {
	titles map[int64]string
}

func (m *mockTitleReader) FindTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	return m.titles, nil
}

func TestConversationsJoinsPeersAndCounts(t *testing.T) {
	courseID := int64(3)
	now := time.Now().UTC()
	repo := &mockMessageRepo{
		latest: []models.Message{
			{ID: 1, SenderID: "peer-1", ReceiverID: "me", Content: "hi", CourseID: &courseID, CreatedAt: now},
			{ID: 2, SenderID: "me", ReceiverID: "peer-2", Content: "question", CreatedAt: now.Add(-time.Hour)},
		},
		unread: map[string]int{"peer-1": 2},
	}
	users := &mockUserBatch{users: map[string]models.User{
		"peer-1": {ID: "peer-1", Name: "Grace", Role: models.RoleInstructor},
		"peer-2": {ID: "peer-2", Name: "Lin", Role: models.RoleStudent},
	}}
	titles := &mockTitleReader{titles: map[int64]string{3: "Go Basics"}}
	svc := NewMessageService(repo, users, titles, nil, nil)

	conversations, err := svc.Conversations(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	assert.Equal(t, "peer-1", conversations[0].PeerID)
	assert.Equal(t, "Grace", conversations[0].PeerName)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	require.NotNil(t, conversations[0].CourseTitle)
	assert.Equal(t, "Go Basics", *conversations[0].CourseTitle)

	assert.Equal(t, "peer-2", conversations[1].PeerID)
	assert.Zero(t, conversations[1].UnreadCount)
	assert.Nil(t, conversations[1].CourseTitle)
}

func TestConversationsOrderedByRecency(t *testing.T) {
	now := time.Now().UTC()
	// The repository returns one row per peer grouped by peer id, so an
	// alphabetically earlier peer with an older message comes first.
	repo := &mockMessageRepo{latest: []models.Message{
		{ID: 1, SenderID: "alice", ReceiverID: "me", Content: "old", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, SenderID: "bob", ReceiverID: "me", Content: "new", CreatedAt: now},
		{ID: 3, SenderID: "carol", ReceiverID: "me", Content: "middle", CreatedAt: now.Add(-time.Hour)},
	}}
	users := &mockUserBatch{users: map[string]models.User{
		"alice": {ID: "alice", Name: "Alice"},
		"bob":   {ID: "bob", Name: "Bob"},
		"carol": {ID: "carol", Name: "Carol"},
	}}
	svc := NewMessageService(repo, users, &mockTitleReader{}, nil, nil)

	conversations, err := svc.Conversations(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, conversations, 3)
	assert.Equal(t, "bob", conversations[0].PeerID)
	assert.Equal(t, "carol", conversations[1].PeerID)
	assert.Equal(t, "alice", conversations[2].PeerID)
}

func TestConversationsSkipsDeletedPeers(t *testing.T) {
	repo := &mockMessageRepo{latest: []models.Message{
		{ID: 1, SenderID: "ghost", ReceiverID: "me", Content: "hello"},
	}}
	svc := NewMessageService(repo, &mockUserBatch{}, &mockTitleReader{}, nil, nil)

	conversations, err := svc.Conversations(context.Background(), "me")
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestMessagesMarksThreadRead(t *testing.T) {
	repo := &mockMessageRepo{between: []models.Message{
		{ID: 1, SenderID: "peer-1", ReceiverID: "me", Content: "hi"},
	}}
	svc := NewMessageService(repo, &mockUserBatch{}, &mockTitleReader{}, nil, nil)

	msgs, err := svc.Messages(context.Background(), "me", "peer-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, []string{"peer-1"}, repo.markedRead)
}

func TestSendRejectsSelfMessage(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, &mockUserBatch{}, &mockTitleReader{}, nil, nil)

	_, err := svc.Send(context.Background(), "me", SendMessageRequest{ReceiverID: "me", Content: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSendRequiresExistingReceiver(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, &mockUserBatch{}, &mockTitleReader{}, nil, nil)

	_, err := svc.Send(context.Background(), "me", SendMessageRequest{ReceiverID: "ghost", Content: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.sent)
}

func TestSendDeliversMessage(t *testing.T) {
	repo := &mockMessageRepo{}
	users := &mockUserBatch{users: map[string]models.User{
		"peer-1": {ID: "peer-1", Name: "Grace"},
	}}
	svc := NewMessageService(repo, users, &mockTitleReader{}, nil, nil)

	msg, err := svc.Send(context.Background(), "me", SendMessageRequest{ReceiverID: "peer-1", Content: "hello"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Read)
	assert.Len(t, repo.sent, 1)
}
