package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/identity"
)

type mockUserRepo struct {
	users       map[string]models.User
	upsertCalls int
}

func (m *mockUserRepo) Upsert(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = map[string]models.User{}
	}
	m.upsertCalls++
	if existing, ok := m.users[user.ID]; ok && user.Bio == nil {
		user.Bio = existing.Bio
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name string, bio *string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Name = name
	u.Bio = bio
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

type mockProvider struct {
	updates []identity.Metadata
	err     error
}

func (m *mockProvider) UpdateMetadata(ctx context.Context, externalID string, meta identity.Metadata) error {
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, meta)
	return nil
}

func TestApplyEventCreatedIsIdempotent(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewIdentityService(repo, nil, nil, nil)

	event := LifecycleEvent{
		Type: EventUserCreated,
		Data: LifecycleEventUser{ID: "ext-1", Name: "Ada", Email: "Ada@Example.com", Role: "student"},
	}
	require.NoError(t, svc.ApplyEvent(context.Background(), event))
	require.NoError(t, svc.ApplyEvent(context.Background(), event))

	assert.Len(t, repo.users, 1)
	assert.Equal(t, 2, repo.upsertCalls)
	assert.Equal(t, "ada@example.com", repo.users["ext-1"].Email)
}

func TestApplyEventUpdatedKeepsLocalBio(t *testing.T) {
	bio := "local bio"
	repo := &mockUserRepo{users: map[string]models.User{
		"ext-1": {ID: "ext-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent, Bio: &bio},
	}}
	svc := NewIdentityService(repo, nil, nil, nil)

	event := LifecycleEvent{
		Type: EventUserUpdated,
		Data: LifecycleEventUser{ID: "ext-1", Name: "Ada L.", Email: "ada@example.com", Role: "instructor"},
	}
	require.NoError(t, svc.ApplyEvent(context.Background(), event))

	user := repo.users["ext-1"]
	assert.Equal(t, "Ada L.", user.Name)
	assert.Equal(t, models.RoleInstructor, user.Role)
	require.NotNil(t, user.Bio)
	assert.Equal(t, "local bio", *user.Bio)
}

func TestApplyEventDeleted(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"ext-1": {ID: "ext-1", Name: "Ada"},
	}}
	svc := NewIdentityService(repo, nil, nil, nil)

	event := LifecycleEvent{Type: EventUserDeleted, Data: LifecycleEventUser{ID: "ext-1"}}
	require.NoError(t, svc.ApplyEvent(context.Background(), event))
	assert.Empty(t, repo.users)
}

func TestApplyEventUnknownTypeIgnored(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewIdentityService(repo, nil, nil, nil)

	event := LifecycleEvent{Type: "session.created", Data: LifecycleEventUser{ID: "ext-1"}}
	require.NoError(t, svc.ApplyEvent(context.Background(), event))
	assert.Zero(t, repo.upsertCalls)
}

func TestApplyEventMissingID(t *testing.T) {
	svc := NewIdentityService(&mockUserRepo{}, nil, nil, nil)

	err := svc.ApplyEvent(context.Background(), LifecycleEvent{Type: EventUserCreated})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCurrentUserMaterialisesFromClaims(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewIdentityService(repo, nil, nil, nil)

	claims := &models.JWTClaims{UserID: "ext-9", Name: "Lin", Email: "Lin@Example.com", Role: models.RoleStudent}
	user, err := svc.CurrentUser(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "ext-9", user.ID)
	assert.Equal(t, "lin@example.com", user.Email)
	assert.Len(t, repo.users, 1)
}

func TestOnboardUpdatesProviderAndLocal(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"ext-1": {ID: "ext-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent},
	}}
	provider := &mockProvider{}
	svc := NewIdentityService(repo, provider, nil, nil)

	expertise := "distributed systems"
	claims := &models.JWTClaims{UserID: "ext-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent}
	user, err := svc.Onboard(context.Background(), claims, OnboardRequest{Role: "instructor", Expertise: &expertise})
	require.NoError(t, err)

	assert.Equal(t, models.RoleInstructor, user.Role)
	assert.True(t, user.IsOnboarded)
	require.Len(t, provider.updates, 1)
	assert.Equal(t, "instructor", provider.updates[0].Role)
	assert.True(t, provider.updates[0].Onboarded)
}

func TestOnboardSurvivesProviderFailure(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"ext-1": {ID: "ext-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent},
	}}
	provider := &mockProvider{err: errors.New("provider unavailable")}
	svc := NewIdentityService(repo, provider, nil, nil)

	claims := &models.JWTClaims{UserID: "ext-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent}
	user, err := svc.Onboard(context.Background(), claims, OnboardRequest{Role: "student"})
	require.NoError(t, err)
	assert.True(t, user.IsOnboarded)
	assert.True(t, repo.users["ext-1"].IsOnboarded)
}

func TestOnboardRejectsUnknownRole(t *testing.T) {
	svc := NewIdentityService(&mockUserRepo{}, nil, nil, nil)

	claims := &models.JWTClaims{UserID: "ext-1", Role: models.RoleStudent}
	_, err := svc.Onboard(context.Background(), claims, OnboardRequest{Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
