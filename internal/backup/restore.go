package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"

	"encoding/json/v2"

	"github.com/devflowapp/devflow-server/internal/backup/stream"
	"github.com/devflowapp/devflow-server/internal/store"
)

// RestoreService restores from backups.
type RestoreService struct {
	store    *store.Store
	logger   *slog.Logger
	importer *Importer
}

// NewRestoreService creates a RestoreService.
func NewRestoreService(s *store.Store, dataDir string, logger *slog.Logger) *RestoreService {
	return &RestoreService{
		store:    s,
		logger:   logger,
		importer: NewImporter(s, dataDir, logger),
	}
}

// Restore wipes the store and replays a backup file into it.
func (s *RestoreService) Restore(ctx context.Context, path string) (*RestoreResult, error) {
	s.logger.Info("starting restore", "path", path)

	result, err := s.importer.Import(ctx, path)
	if err != nil {
		return nil, err
	}

	s.logger.Info("restore complete",
		"imported", result.Imported,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// Validate checks a backup without importing.
func (s *RestoreService) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{
		Valid: true,
	}

	// Check manifest
	rc, err := stream.OpenFile(zr, "manifest.json")
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, "missing manifest.json")
		return result, nil
	}

	var manifest Manifest
	if err := json.UnmarshalRead(rc, &manifest); err != nil {
		rc.Close()
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid manifest: %v", err))
		return result, nil
	}
	rc.Close()

	result.Manifest = &manifest
	result.ExpectedCounts = manifest.Counts

	// Check version
	if manifest.Version != FormatVersion {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported version %s (want %s)", manifest.Version, FormatVersion))
	}

	// Check required files exist
	requiredFiles := []string{
		"server.json",
		"entities/users.jsonl",
		"entities/tags.jsonl",
		"entities/questions.jsonl",
	}

	for _, name := range requiredFiles {
		if rc, err := stream.OpenFile(zr, name); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("missing file: %s", name))
		} else {
			rc.Close()
		}
	}

	return result, nil
}
