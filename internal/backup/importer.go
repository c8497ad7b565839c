package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encoding/json/v2"

	"github.com/devflowapp/devflow-server/internal/backup/stream"
	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/store"
)

// Importer restores from backup archives.
type Importer struct {
	store   *store.Store
	dataDir string
	logger  *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(s *store.Store, dataDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, dataDir: dataDir, logger: logger}
}

// Import restores from a backup file. Existing data is wiped first, then the
// archived streams are replayed into the empty store. Sessions are not part
// of backups, all clients have to log in again after a restore.
func (i *Importer) Import(ctx context.Context, path string) (*RestoreResult, error) {
	start := time.Now()

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := i.readManifest(zr)
	if err != nil {
		return nil, err
	}

	if err := i.checkVersion(manifest.Version); err != nil {
		return nil, err
	}

	result := &RestoreResult{
		Imported: make(map[string]int),
	}

	if err := i.store.ClearAllData(ctx); err != nil {
		return nil, fmt.Errorf("clear existing data: %w", err)
	}

	// Server identity. Not critical, restore continues without it.
	if err := i.importServer(ctx, zr); err != nil {
		result.Errors = append(result.Errors, RestoreError{
			EntityType: "server",
			Error:      err.Error(),
		})
	}

	steps := []struct {
		name string
		fn   func(context.Context, *zip.ReadCloser) (int, []RestoreError)
	}{
		{"users", i.importUsers},
		{"tags", i.importTags},
		{"questions", i.importQuestions},
		{"tag_questions", i.importTagQuestions},
		{"answers", i.importAnswers},
		{"votes", i.importVotes},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		imported, errs := step.fn(ctx, zr)
		result.Imported[step.name] = imported
		result.Errors = append(result.Errors, errs...)

		i.logger.Info("imported entities",
			"type", step.name,
			"imported", imported,
			"errors", len(errs))
	}

	if manifest.IncludesAvatars {
		if n, err := i.importAvatars(ctx, zr); err != nil {
			result.Errors = append(result.Errors, RestoreError{
				EntityType: "avatars",
				Error:      err.Error(),
			})
		} else {
			result.Imported["avatars"] = n
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (i *Importer) readManifest(zr *zip.ReadCloser) (*Manifest, error) {
	rc, err := stream.OpenFile(zr, "manifest.json")
	if err != nil {
		return nil, ErrInvalidManifest
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.UnmarshalRead(rc, &manifest); err != nil {
		return nil, ErrInvalidManifest
	}

	return &manifest, nil
}

func (i *Importer) checkVersion(version string) error {
	// Only exact version match for now.
	// Future: add migration logic for older formats.
	if version != FormatVersion {
		return fmt.Errorf("%w: got %s, want %s", ErrVersionMismatch, version, FormatVersion)
	}
	return nil
}

func (i *Importer) importServer(ctx context.Context, zr *zip.ReadCloser) error {
	rc, err := stream.OpenFile(zr, "server.json")
	if err != nil {
		return err
	}
	defer rc.Close()

	var instance domain.Instance
	if err := json.UnmarshalRead(rc, &instance); err != nil {
		return fmt.Errorf("parse server.json: %w", err)
	}

	return i.store.RestoreInstance(ctx, &instance)
}

// importEntities replays one JSONL stream through a restore function.
// Parse and restore failures are collected per entity, the stream keeps going.
func importEntities[T any](zr *zip.ReadCloser, path, entityType string, idOf func(*T) string, restoreFn func(*T) error) (int, []RestoreError) {
	rc, err := stream.OpenFile(zr, path)
	if err != nil {
		if errors.Is(err, stream.ErrFileNotFound) {
			return 0, nil
		}
		return 0, []RestoreError{{EntityType: entityType, Error: err.Error()}}
	}

	var (
		imported int
		errs     []RestoreError
	)

	reader := stream.NewReader[T](rc)
	for entity, err := range reader.All() {
		if err != nil {
			errs = append(errs, RestoreError{
				EntityType: entityType,
				Error:      fmt.Sprintf("parse error: %v", err),
			})
			continue
		}

		if err := restoreFn(&entity); err != nil {
			errs = append(errs, RestoreError{
				EntityType: entityType,
				EntityID:   idOf(&entity),
				Error:      err.Error(),
			})
			continue
		}
		imported++
	}

	return imported, errs
}

func (i *Importer) importUsers(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/users.jsonl", "users",
		func(u *domain.User) string { return u.ID },
		func(u *domain.User) error { return i.store.RestoreUser(ctx, u) })
}

func (i *Importer) importTags(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/tags.jsonl", "tags",
		func(t *domain.Tag) string { return t.ID },
		func(t *domain.Tag) error { return i.store.RestoreTag(ctx, t) })
}

func (i *Importer) importQuestions(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/questions.jsonl", "questions",
		func(q *domain.Question) string { return q.ID },
		func(q *domain.Question) error { return i.store.RestoreQuestion(ctx, q) })
}

func (i *Importer) importTagQuestions(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/tag_questions.jsonl", "tag_questions",
		func(tq *domain.TagQuestion) string { return tq.QuestionID },
		func(tq *domain.TagQuestion) error { return i.store.RestoreTagQuestion(ctx, tq) })
}

func (i *Importer) importAnswers(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/answers.jsonl", "answers",
		func(a *domain.Answer) string { return a.ID },
		func(a *domain.Answer) error { return i.store.RestoreAnswer(ctx, a) })
}

func (i *Importer) importVotes(ctx context.Context, zr *zip.ReadCloser) (int, []RestoreError) {
	return importEntities(zr, "entities/votes.jsonl", "votes",
		func(v *domain.Vote) string { return v.QuestionID },
		func(v *domain.Vote) error { return i.store.RestoreVote(ctx, v) })
}

// importAvatars extracts avatar files into the data directory.
func (i *Importer) importAvatars(ctx context.Context, zr *zip.ReadCloser) (int, error) {
	count := 0

	for _, f := range zr.File {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}

		after, ok := strings.CutPrefix(f.Name, "avatars/")
		if !ok || after == "" {
			continue
		}
		// Archive entries are flat {user_id}.img names. Anything with path
		// components is malformed and could escape the data directory.
		if after != filepath.Base(after) {
			continue
		}

		destPath := filepath.Join(i.dataDir, "avatars", after)

		if err := i.extractFile(f, destPath); err != nil {
			i.logger.Warn("failed to extract avatar",
				"path", f.Name,
				"dest", destPath,
				"error", err)
			continue
		}
		count++
	}

	return count, nil
}

func (i *Importer) extractFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, rc)
	return err
}
