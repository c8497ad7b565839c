package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/domain"
)

func newTestSession(id, userID, tokenHash string, expiresIn time.Duration) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        now.Add(expiresIn),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
}

func TestCreateSession_AndGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	session := newTestSession("ses_test1", "usr_test1", "tokenhash1", time.Hour)
	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
}

func TestGetSession_Expired(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	session := newTestSession("ses_test1", "usr_test1", "tokenhash1", -time.Minute)
	require.NoError(t, s.CreateSession(ctx, session))

	_, err := s.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestGetSessionByRefreshToken(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	session := newTestSession("ses_test1", "usr_test1", "tokenhash1", time.Hour)
	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSessionByRefreshToken(ctx, "tokenhash1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = s.GetSessionByRefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateSession_TokenRotation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	session := newTestSession("ses_test1", "usr_test1", "oldhash", time.Hour)
	require.NoError(t, s.CreateSession(ctx, session))

	session.RefreshTokenHash = "newhash"
	require.NoError(t, s.UpdateSession(ctx, session))

	// New token resolves, old one is dead.
	got, err := s.GetSessionByRefreshToken(ctx, "newhash")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = s.GetSessionByRefreshToken(ctx, "oldhash")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	session := newTestSession("ses_test1", "usr_test1", "tokenhash1", time.Hour)
	require.NoError(t, s.CreateSession(ctx, session))

	require.NoError(t, s.DeleteSession(ctx, session.ID))

	_, err := s.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.GetSessionByRefreshToken(ctx, "tokenhash1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteSession(ctx, session.ID))
}

func TestListUserSessions_SkipsExpired(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_live1", "usr_test1", "hash1", time.Hour)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_live2", "usr_test1", "hash2", time.Hour)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_dead", "usr_test1", "hash3", -time.Minute)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_other", "usr_test2", "hash4", time.Hour)))

	sessions, err := s.ListUserSessions(ctx, "usr_test1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestDeleteAllUserSessions(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_test1", "usr_test1", "hash1", time.Hour)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_test2", "usr_test1", "hash2", time.Hour)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_other", "usr_test2", "hash3", time.Hour)))

	require.NoError(t, s.DeleteAllUserSessions(ctx, "usr_test1"))

	sessions, err := s.ListUserSessions(ctx, "usr_test1")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Other user's session survives.
	others, err := s.ListUserSessions(ctx, "usr_test2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_live", "usr_test1", "hash1", time.Hour)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_dead1", "usr_test1", "hash2", -time.Minute)))
	require.NoError(t, s.CreateSession(ctx, newTestSession("ses_dead2", "usr_test2", "hash3", -time.Hour)))

	deleted, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.GetSession(ctx, "ses_live")
	assert.NoError(t, err)
}
