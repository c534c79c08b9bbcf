package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/identity"
)

type userRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name string, bio *string) error
	Delete(ctx context.Context, id string) error
}

// Lifecycle event types delivered by the identity provider.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// LifecycleEventUser is the user payload inside a lifecycle event.
type LifecycleEventUser struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Expertise *string `json:"expertise"`
	AvatarURL *string `json:"avatar_url"`
	Onboarded bool    `json:"onboarded"`
}

// LifecycleEvent is the webhook body after signature verification.
type LifecycleEvent struct {
	Type string             `json:"type"`
	Data LifecycleEventUser `json:"data"`
}

// OnboardRequest completes a user's profile after first sign-in.
type OnboardRequest struct {
	Role      string  `json:"role" validate:"required,oneof=student instructor"`
	Expertise *string `json:"expertise" validate:"omitempty,max=255"`
}

// UpdateProfileRequest mutates the locally editable profile fields.
type UpdateProfileRequest struct {
	Name string  `json:"name" validate:"required,min=2,max=100"`
	Bio  *string `json:"bio" validate:"omitempty,max=2000"`
}

// IdentityService keeps the local user table in sync with the external
// identity provider and serves the current-user surface.
type IdentityService struct {
	users     userRepository
	provider  identity.MetadataUpdater
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIdentityService constructs IdentityService. The provider may be nil
// when outbound sync is disabled.
func NewIdentityService(users userRepository, provider identity.MetadataUpdater, validate *validator.Validate, logger *zap.Logger) *IdentityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{users: users, provider: provider, validator: validate, logger: logger}
}

// ApplyEvent applies one verified lifecycle event. Created and updated
// events run the same upsert, so redelivered events converge on the same
// row. Unknown event types are acknowledged without a write.
func (s *IdentityService) ApplyEvent(ctx context.Context, event LifecycleEvent) error {
	switch event.Type {
	case EventUserCreated, EventUserUpdated:
		if event.Data.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "event data missing user id")
		}
		user := &models.User{
			ID:          event.Data.ID,
			Name:        event.Data.Name,
			Email:       strings.ToLower(event.Data.Email),
			Role:        eventRole(event.Data.Role),
			Expertise:   event.Data.Expertise,
			AvatarURL:   event.Data.AvatarURL,
			IsOnboarded: event.Data.Onboarded,
		}
		if err := s.users.Upsert(ctx, user); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply identity event")
		}
		return nil
	case EventUserDeleted:
		if event.Data.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "event data missing user id")
		}
		if err := s.users.Delete(ctx, event.Data.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply identity event")
		}
		return nil
	default:
		s.logger.Info("ignoring unknown identity event", zap.String("type", event.Type))
		return nil
	}
}

// CurrentUser returns the local record for the authenticated caller,
// materialising it from token claims when the provider's webhook has not
// delivered the user yet.
func (s *IdentityService) CurrentUser(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user = &models.User{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: strings.ToLower(claims.Email),
		Role:  eventRole(string(claims.Role)),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialise user")
	}
	return user, nil
}

// Onboard records the user's chosen role and expertise. The provider is
// updated first so its session claims pick up the role; a provider
// failure is logged and the local write still happens.
func (s *IdentityService) Onboard(ctx context.Context, claims *models.JWTClaims, req OnboardRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid onboarding payload")
	}

	user, err := s.CurrentUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	meta := identity.Metadata{Role: req.Role, Onboarded: true}
	if req.Expertise != nil {
		meta.Expertise = *req.Expertise
	}
	if s.provider != nil {
		if err := s.provider.UpdateMetadata(ctx, user.ID, meta); err != nil {
			s.logger.Warn("identity provider metadata update failed",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	user.Role = models.UserRole(req.Role)
	user.Expertise = req.Expertise
	user.IsOnboarded = true
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save onboarding")
	}
	return user, nil
}

// UpdateProfile changes the locally editable fields.
func (s *IdentityService) UpdateProfile(ctx context.Context, claims *models.JWTClaims, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.CurrentUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, user.ID, req.Name, req.Bio); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	user.Name = req.Name
	user.Bio = req.Bio
	return user, nil
}

func eventRole(raw string) models.UserRole {
	role := models.UserRole(raw)
	if !role.Valid() {
		return models.RoleStudent
	}
	return role
}
