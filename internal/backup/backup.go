package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/devflowapp/devflow-server/internal/store"
)

// archiveSuffix is the filename suffix for DevFlow backup archives.
const archiveSuffix = ".devflow.zip"

// BackupService manages backup creation and listing.
type BackupService struct {
	store     *store.Store
	backupDir string
	logger    *slog.Logger
	exporter  *Exporter
}

// NewBackupService creates a BackupService.
func NewBackupService(s *store.Store, backupDir, dataDir, version string, logger *slog.Logger) *BackupService {
	return &BackupService{
		store:     s,
		backupDir: backupDir,
		logger:    logger,
		exporter:  NewExporter(s, dataDir, version),
	}
}

// Create creates a new backup.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	// Generate output path if not specified
	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := time.Now().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, fmt.Sprintf("backup-%s%s", timestamp, archiveSuffix))
	}

	s.logger.Info("creating backup",
		"output", outputPath,
		"include_avatars", opts.IncludeAvatars)

	opts.OutputPath = outputPath
	result, err := s.exporter.Export(ctx, opts)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return result, nil
}

// List returns all available backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), archiveSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), archiveSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	path := s.GetPath(id)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}

	return os.Remove(path)
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+archiveSuffix)
}
