package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/version"
)

// setupTestService creates a service with a temporary store for testing.
func setupTestService(t *testing.T) (*InstanceService, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "devflow-service-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := store.New(dbPath, nil, store.NewNoopPublisher())
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name:      "Test Server",
			RemoteURL: "",
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewInstanceService(s, logger, cfg)

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}

	return service, cleanup
}

func TestInstanceService_InitializeInstance(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	instance, err := service.InitializeInstance(ctx)
	require.NoError(t, err)
	require.NotNil(t, instance)

	assert.Equal(t, "Test Server", instance.Name)
	assert.Equal(t, version.Server, instance.Version)
	assert.False(t, instance.HasRootUser)
	assert.NotEmpty(t, instance.ID)
}

func TestInstanceService_InitializeInstanceIdempotent(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	first, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	second, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
}

func TestInstanceService_SyncsConfigChanges(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	_, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	// Operator renames the server and sets a remote URL between starts
	service.config.Server.Name = "Renamed Server"
	service.config.Server.RemoteURL = "https://devflow.example.com"

	instance, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Renamed Server", instance.Name)
	assert.Equal(t, "https://devflow.example.com", instance.RemoteUrl)
}

func TestInstanceService_IsSetupRequired(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	_, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	required, err := service.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.True(t, required)

	err = service.SetRootUser(ctx, "usr_root")
	require.NoError(t, err)

	required, err = service.IsSetupRequired(ctx)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestInstanceService_SetRootUserOnlyOnce(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	_, err := service.InitializeInstance(ctx)
	require.NoError(t, err)

	require.NoError(t, service.SetRootUser(ctx, "usr_first"))

	err = service.SetRootUser(ctx, "usr_second")
	assert.Error(t, err)
}
