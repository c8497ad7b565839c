package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/backup"
	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/media/images"
	"github.com/devflowapp/devflow-server/internal/service"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/store/sqlite"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// testEnvelope mirrors the wire envelope for decoding test responses.
type testEnvelope[T any] struct {
	Version int          `json:"v"`
	Success bool         `json:"success"`
	Data    T            `json:"data"`
	Error   *testAPIErr  `json:"error"`
}

type testAPIErr struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api           humatest.TestAPI
	tokenService  *auth.TokenService
	eventsManager *events.Manager
}

// setupTestServer builds a server against a temp Badger store with all
// routes registered and the instance initialized.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()

	st, err := store.New(filepath.Join(tmpDir, "devflow.db"), nil, store.NewNoopPublisher())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name:        "Test Server",
			CORSOrigins: []string{"*"},
		},
		Auth: config.AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 30 * 24 * time.Hour,
		},
	}

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	cfg.Auth.AccessTokenKey = authKey

	tokenService, err := auth.NewTokenService(authKey, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	manager := events.NewManager(logger)
	eventsHandler := events.NewHandler(manager, logger)
	validator := validation.New()

	avatarStorage, err := images.NewStorage(filepath.Join(tmpDir, "avatars"))
	require.NoError(t, err)
	processor := images.NewProcessor(avatarStorage, logger)

	snapshot, err := sqlite.Open(filepath.Join(tmpDir, "stats.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = snapshot.Close() })

	sessionService := service.NewSessionService(st, tokenService, logger)
	instanceService := service.NewInstanceService(st, logger, cfg)
	authService := service.NewAuthService(st, tokenService, sessionService, instanceService, validator, logger)

	services := &Services{
		Instance: instanceService,
		Auth:     authService,
		User:     service.NewUserService(st, processor, avatarStorage, logger),
		Question: service.NewQuestionService(st, validator, logger),
		Answer:   service.NewAnswerService(st, validator, logger),
		Tag:      service.NewTagService(st, validator, logger),
		Stats:    service.NewStatsService(st, snapshot, logger),
		Backup:   backup.NewBackupService(st, filepath.Join(tmpDir, "backups"), tmpDir, "test", logger),
		Restore:  backup.NewRestoreService(st, tmpDir, logger),
	}

	router := chi.NewRouter()
	router.Use(authMiddleware(services.Auth))

	humaConfig := huma.DefaultConfig("DevFlow API Test", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:         st,
		services:      services,
		eventsHandler: eventsHandler,
		router:        router,
		api:           api,
		logger:        logger,
	}

	s.registerHealthRoutes()
	s.registerInstanceRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerQuestionRoutes()
	s.registerAnswerRoutes()
	s.registerTagRoutes()
	s.registerAdminBackupRoutes()
	s.registerAdminStatsRoutes()
	s.setupRawRoutes()

	_, err = services.Instance.InitializeInstance(context.Background())
	require.NoError(t, err)

	return &testServer{
		Server:        s,
		api:           humatest.Wrap(t, api),
		tokenService:  tokenService,
		eventsManager: manager,
	}
}

// setupRootUser runs first-time setup and returns the root access token and
// user ID.
func (ts *testServer) setupRootUser(t *testing.T) (token string, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"email":        "admin@test.com",
		"password":     "TestPassword123!",
		"display_name": "Test Admin",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Setup failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	claims, err := ts.tokenService.VerifyAccessToken(envelope.Data.AccessToken)
	require.NoError(t, err)

	return envelope.Data.AccessToken, claims.UserID
}

// registerAndLogin creates a regular account and logs it in.
func (ts *testServer) registerAndLogin(t *testing.T, email, displayName string) (token string, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        email,
		"password":     "TestPassword123!",
		"display_name": displayName,
	})
	require.Equal(t, http.StatusOK, resp.Code, "Register failed: %s", resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": "TestPassword123!",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Login failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	claims, err := ts.tokenService.VerifyAccessToken(envelope.Data.AccessToken)
	require.NoError(t, err)

	return envelope.Data.AccessToken, claims.UserID
}

// createQuestion posts a question and returns its decoded view.
func (ts *testServer) createQuestion(t *testing.T, token, title string, tags []string) service.QuestionView {
	t.Helper()

	resp := ts.api.Post("/api/v1/questions",
		map[string]any{
			"title":   title,
			"content": "How do I do the thing described in " + title + "?",
			"tags":    tags,
		},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, "Create question failed: %s", resp.Body.String())

	var envelope testEnvelope[service.QuestionView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}
