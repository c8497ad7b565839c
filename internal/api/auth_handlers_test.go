package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_CreatesRootUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"email":        "root@test.com",
		"password":     "SuperSecret42!",
		"display_name": "Root",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.NotEmpty(t, envelope.Data.SessionID)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.True(t, envelope.Data.User.IsRoot)
	assert.Equal(t, "root@test.com", envelope.Data.User.Email)
}

func TestSetup_OnlyOnce(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"email":        "second@test.com",
		"password":     "SuperSecret42!",
		"display_name": "Second Root",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_CONFIGURED", envelope.Error.Code)
}

func TestRegister_RequiresSetupFirst(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "user@test.com",
		"password":     "TestPassword123!",
		"display_name": "Early Bird",
	})
	assert.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	body := map[string]any{
		"email":        "user@test.com",
		"password":     "TestPassword123!",
		"display_name": "First",
	}
	resp := ts.api.Post("/api/v1/auth/register", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/register", body)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRegister_DoesNotLogIn(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "user@test.com",
		"password":     "TestPassword123!",
		"display_name": "New User",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[RegisterResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	// Registration returns an ID and a message, never tokens.
	assert.NotEmpty(t, envelope.Data.UserID)
	assert.NotEmpty(t, envelope.Data.Message)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "admin@test.com",
		"password": "WrongPassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "nobody@test.com",
		"password": "TestPassword123!",
	})
	// Unknown email and wrong password must be indistinguishable.
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"email":        "admin@test.com",
		"password":     "TestPassword123!",
		"display_name": "Admin",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var setup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &setup))

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": setup.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refreshed testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))

	assert.NotEmpty(t, refreshed.Data.AccessToken)
	assert.NotEqual(t, setup.Data.RefreshToken, refreshed.Data.RefreshToken)

	// Old refresh token is dead after rotation.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": setup.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"email":        "admin@test.com",
		"password":     "TestPassword123!",
		"display_name": "Admin",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var setup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &setup))

	resp = ts.api.Post("/api/v1/auth/logout", map[string]any{},
		"Authorization: Bearer "+setup.Data.AccessToken)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Refresh with the revoked session's token fails.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": setup.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/auth/logout", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
