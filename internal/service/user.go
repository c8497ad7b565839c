package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/media/images"
	"github.com/devflowapp/devflow-server/internal/store"
)

// UserService serves account profiles and avatar uploads.
type UserService struct {
	store     *store.Store
	processor *images.Processor
	avatars   *images.Storage
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(s *store.Store, processor *images.Processor, avatars *images.Storage, logger *slog.Logger) *UserService {
	return &UserService{
		store:     s,
		processor: processor,
		avatars:   avatars,
		logger:    logger,
	}
}

// UserView is the caller's own profile projection. Email is only ever shown
// to the account owner; other users see UserRef.
type UserView struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	IsRoot         bool      `json:"is_root"`
	AvatarColor    string    `json:"avatar_color"`
	AvatarHash     string    `json:"avatar_hash,omitempty"`
	AvatarBlurHash string    `json:"avatar_blur_hash,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Get returns the profile for a user ID.
func (s *UserService) Get(ctx context.Context, userID string) (*UserView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, domainerrors.Store("could not load user").WithCause(err)
	}

	view := userView(user)
	return &view, nil
}

// UploadAvatar validates, stores, and records a new avatar image for the
// user. The previous image, if any, is overwritten in place.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, data []byte) (*UserView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, domainerrors.Store("could not load user").WithCause(err)
	}

	result, err := s.processor.Process(userID, data)
	if err != nil {
		return nil, domainerrors.Validation("unsupported or corrupt image").WithCause(err)
	}

	user.AvatarHash = result.Hash
	user.AvatarBlurHash = result.BlurHash
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, domainerrors.Store("could not update user").WithCause(err)
	}

	s.logger.Info("Avatar updated",
		"user_id", userID,
		"format", result.Format,
		"size", result.Size,
	)

	view := userView(user)
	return &view, nil
}

// Avatar returns the stored avatar bytes and hash for a user.
func (s *UserService) Avatar(ctx context.Context, userID string) ([]byte, string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", domainerrors.NotFound("user not found")
		}
		return nil, "", domainerrors.Store("could not load user").WithCause(err)
	}

	if user.AvatarHash == "" || !s.avatars.Exists(userID) {
		return nil, "", domainerrors.NotFound("user has no avatar")
	}

	data, err := s.avatars.Get(userID)
	if err != nil {
		return nil, "", domainerrors.Store("could not read avatar").WithCause(err)
	}

	return data, user.AvatarHash, nil
}

func userView(u *domain.User) UserView {
	return UserView{
		ID:             u.ID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		IsRoot:         u.IsRoot,
		AvatarColor:    u.AvatarColor,
		AvatarHash:     u.AvatarHash,
		AvatarBlurHash: u.AvatarBlurHash,
		CreatedAt:      u.CreatedAt,
	}
}
