package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/config"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// setupAuthTest creates services with temporary storage for testing.
func setupAuthTest(t *testing.T) (*AuthService, *InstanceService, *auth.TokenService, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "devflow-auth-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := store.New(dbPath, nil, store.NewNoopPublisher())
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name: "Test Server",
		},
	}

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(key, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	logger := testLogger()
	instanceService := NewInstanceService(s, logger, cfg)
	sessionService := NewSessionService(s, tokenService, logger)
	authService := NewAuthService(s, tokenService, sessionService, instanceService, validation.New(), logger)

	_, err = instanceService.InitializeInstance(context.Background())
	require.NoError(t, err)

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}

	return authService, instanceService, tokenService, cleanup
}

func TestAuthService_Setup(t *testing.T) {
	authService, instanceService, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	resp, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.User.IsRoot)
	assert.Equal(t, "root@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	required, err := instanceService.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestAuthService_SetupOnlyOnce(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	_, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	_, err = authService.Setup(ctx, SetupRequest{
		Email:       "second@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Second Root",
	})
	require.Error(t, err)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeAlreadyConfigured, derr.Code)
}

func TestAuthService_RegisterRequiresSetup(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	_, err := authService.Register(context.Background(), RegisterRequest{
		Email:       "member@example.com",
		Password:    "MemberPass123!",
		DisplayName: "Member",
	})
	require.Error(t, err)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeForbidden, derr.Code)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	_, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	user, err := authService.Register(ctx, RegisterRequest{
		Email:       "member@example.com",
		Password:    "MemberPass123!",
		DisplayName: "Member",
	})
	require.NoError(t, err)
	assert.False(t, user.IsRoot)
	assert.NotEmpty(t, user.AvatarColor)

	resp, err := authService.Login(ctx, LoginRequest{
		Email:    "member@example.com",
		Password: "MemberPass123!",
		Client:   auth.ClientInfo{Name: "Test Client"},
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	_, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	_, err = authService.Login(ctx, LoginRequest{
		Email:    "root@example.com",
		Password: "WrongPassword1!",
	})
	require.Error(t, err)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeInvalidCredentials, derr.Code)

	// Unknown email fails with the same code so the two cases are
	// indistinguishable to a caller.
	_, err = authService.Login(ctx, LoginRequest{
		Email:    "nobody@example.com",
		Password: "WrongPassword1!",
	})
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeInvalidCredentials, derr.Code)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	setup, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	refreshed, err := authService.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: setup.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, setup.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is dead after rotation
	_, err = authService.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: setup.RefreshToken,
	})
	require.Error(t, err)
}

func TestAuthService_VerifyAccessToken(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	setup, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	user, claims, err := authService.VerifyAccessToken(ctx, setup.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, setup.User.ID, user.ID)
	assert.True(t, claims.IsRoot)

	_, _, err = authService.VerifyAccessToken(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	authService, _, _, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()

	setup, err := authService.Setup(ctx, SetupRequest{
		Email:       "root@example.com",
		Password:    "SuperSecret123!",
		DisplayName: "Root User",
	})
	require.NoError(t, err)

	require.NoError(t, authService.Logout(ctx, setup.SessionID))

	_, err = authService.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: setup.RefreshToken,
	})
	require.Error(t, err)
}
