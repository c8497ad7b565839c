package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/id"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStats(t *testing.T) (*StatsService, *store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stats-service-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	testStore, err := store.New(dbPath, nil, store.NewNoopPublisher())
	require.NoError(t, err)

	logger := testLogger()

	snapshot, err := sqlite.Open(filepath.Join(tmpDir, "stats.db"), logger)
	require.NoError(t, err)

	svc := NewStatsService(testStore, snapshot, logger)

	cleanup := func() {
		snapshot.Close()
		testStore.Close()
		os.RemoveAll(tmpDir)
	}

	return svc, testStore, cleanup
}

func createTestUser(t *testing.T, s *store.Store, email string) *domain.User {
	t.Helper()

	now := time.Now()
	user := &domain.User{
		ID:          id.MustGenerate("usr"),
		Email:       email,
		DisplayName: "Test User",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func createTestQuestion(t *testing.T, s *store.Store, authorID, title string, tags []string) *domain.Question {
	t.Helper()

	now := time.Now()
	q := &domain.Question{
		ID:        id.MustGenerate("qst"),
		Title:     title,
		Content:   "test content",
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	saved, err := s.CreateQuestion(context.Background(), q, tags)
	require.NoError(t, err)
	return saved
}

func TestStatsService_OverviewEmptyStore(t *testing.T) {
	svc, _, cleanup := setupTestStats(t)
	defer cleanup()

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.NotNil(t, overview)
	require.NotNil(t, overview.Totals, "first Overview call must build a snapshot")

	assert.Equal(t, 0, overview.Totals.Questions)
	assert.Equal(t, 0, overview.Totals.Users)
	assert.Empty(t, overview.TopTags)
}

func TestStatsService_OverviewReflectsStore(t *testing.T) {
	svc, s, cleanup := setupTestStats(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, s, "author@example.com")
	q1 := createTestQuestion(t, s, user.ID, "First question", []string{"go", "testing"})
	createTestQuestion(t, s, user.ID, "Second question", []string{"go"})

	// Some engagement on q1 so it ranks
	_, err := s.RecordQuestionView(ctx, q1.ID)
	require.NoError(t, err)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, overview.Totals.Questions)
	assert.Equal(t, 2, overview.Totals.Tags)
	assert.Equal(t, 1, overview.Totals.Users)

	require.NotEmpty(t, overview.TopTags)
	assert.Equal(t, "go", overview.TopTags[0].Name)
	assert.Equal(t, 2, overview.TopTags[0].Questions)
}

func TestStatsService_RebuildReplacesStale(t *testing.T) {
	svc, s, cleanup := setupTestStats(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, s, "author@example.com")
	require.NoError(t, svc.Rebuild(ctx))

	createTestQuestion(t, s, user.ID, "Added after snapshot", []string{"badger"})

	// Stale snapshot until the next rebuild
	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, overview.Totals.Questions)

	require.NoError(t, svc.Rebuild(ctx))

	overview, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Totals.Questions)
}

func TestStatsService_ExportSnapshot(t *testing.T) {
	svc, s, cleanup := setupTestStats(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, s, "author@example.com")
	createTestQuestion(t, s, user.ID, "Exported question", []string{"sqlite"})

	exportPath := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, svc.ExportSnapshot(ctx, exportPath))

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	require.Greater(t, len(data), 16)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
}
