package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInstance_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, err := s.GetInstance(ctx)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestCreateInstance(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	instance, err := s.CreateInstance(ctx, "DevFlow", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "server-001", instance.ID)
	assert.Equal(t, "DevFlow", instance.Name)
	assert.False(t, instance.HasRootUser)

	// Second create fails.
	_, err = s.CreateInstance(ctx, "DevFlow", "1.0.0")
	assert.ErrorIs(t, err, ErrInstanceExists)
}

func TestUpdateInstance(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	instance, err := s.CreateInstance(ctx, "DevFlow", "1.0.0")
	require.NoError(t, err)

	instance.HasRootUser = true
	require.NoError(t, s.UpdateInstance(ctx, instance))

	got, err := s.GetInstance(ctx)
	require.NoError(t, err)
	assert.True(t, got.HasRootUser)
}

func TestInitializeInstance(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// First call creates.
	first, err := s.InitializeInstance(ctx, "DevFlow", "1.0.0")
	require.NoError(t, err)

	// Second call finds the existing one and refreshes the version.
	second, err := s.InitializeInstance(ctx, "DevFlow", "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "1.1.0", second.Version)
}
