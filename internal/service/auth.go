package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/color"
	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/id"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// AuthService handles account creation and credential verification. Session
// lifecycle is delegated to SessionService; the engine itself only ever sees
// the identity this service resolves.
type AuthService struct {
	store           *store.Store
	tokenService    *auth.TokenService
	sessionService  *SessionService
	instanceService *InstanceService
	validator       *validation.Validator
	logger          *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	s *store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	instanceService *InstanceService,
	v *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:           s,
		tokenService:    tokenService,
		sessionService:  sessionService,
		instanceService: instanceService,
		validator:       v,
		logger:          logger,
	}
}

// SetupRequest contains the initial root user creation data.
type SetupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// RegisterRequest contains open-registration account data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// LoginRequest contains user credentials plus optional client metadata.
type LoginRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required"`
	Client    auth.ClientInfo `json:"client"`
	IPAddress string          `json:"-"` // Extracted from the request by the handler
}

// RefreshRequest contains the refresh token and updated client metadata.
type RefreshRequest struct {
	RefreshToken string          `json:"refresh_token" validate:"required"`
	Client       auth.ClientInfo `json:"client"`
	IPAddress    string          `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Setup creates the first user (root) and marks the instance configured.
// Usable exactly once, while no root user exists.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	setupRequired, err := s.instanceService.IsSetupRequired(ctx)
	if err != nil {
		return nil, fmt.Errorf("check setup status: %w", err)
	}
	if !setupRequired {
		return nil, domainerrors.AlreadyConfigured("server is already configured")
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.DisplayName, true)
	if err != nil {
		return nil, err
	}

	if err := s.instanceService.SetRootUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("configure instance: %w", err)
	}

	// Setup happens from the web form, before any client identifies itself.
	sessionResp, err := s.sessionService.CreateSession(ctx, user, auth.ClientInfo{Name: "DevFlow Web"}, "")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("Server setup complete",
		"user_id", user.ID,
		"email", user.Email,
	)

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Register creates a new active member account. Registration is open; the
// only hard precondition is that setup already ran.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	setupRequired, err := s.instanceService.IsSetupRequired(ctx)
	if err != nil {
		return nil, fmt.Errorf("check setup status: %w", err)
	}
	if setupRequired {
		return nil, domainerrors.Forbidden("server setup has not been completed")
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.DisplayName, false)
	if err != nil {
		return nil, err
	}

	s.store.BroadcastUserRegistered(user)

	s.logger.Info("User registered",
		"user_id", user.ID,
		"email", user.Email,
	)

	return user, nil
}

// Login authenticates a user and opens a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// The login itself succeeded; a stale timestamp is not worth failing it.
		s.logger.Warn("Failed to update last login time",
			"user_id", user.ID,
			"error", err,
		)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.Client, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User logged in",
		"user_id", user.ID,
		"client", req.Client.Name,
	)

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// RefreshTokens generates new tokens using a refresh token. The old refresh
// token is invalidated (token rotation).
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.Client, req.IPAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Logout revokes a session, invalidating its refresh token.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessionService.DeleteSession(ctx, sessionID)
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by the authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, errors.New("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// createUser hashes the password and persists a new account.
func (s *AuthService) createUser(ctx context.Context, email, password, displayName string, isRoot bool) (*domain.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(displayName),
		IsRoot:       isRoot,
		AvatarColor:  color.ForUser(userID),
		LastLoginAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}
