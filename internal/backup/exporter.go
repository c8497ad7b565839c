package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"encoding/json/v2"

	"github.com/google/uuid"

	"github.com/devflowapp/devflow-server/internal/backup/stream"
	"github.com/devflowapp/devflow-server/internal/store"
)

// Exporter creates backup archives.
type Exporter struct {
	store   *store.Store
	dataDir string
	version string
}

// NewExporter creates an Exporter. dataDir is the directory holding avatar
// images; version is the running server version recorded in the manifest.
func NewExporter(s *store.Store, dataDir, version string) *Exporter {
	return &Exporter{store: s, dataDir: dataDir, version: version}
}

// Export creates a backup archive at opts.OutputPath.
func (e *Exporter) Export(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	// Write to a temp file, rename on success (atomic).
	tmpPath := opts.OutputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	// Tee to SHA-256 hasher
	hash := sha256.New()
	mw := io.MultiWriter(f, hash)
	zw := zip.NewWriter(mw)

	manifest := &Manifest{
		Version:         FormatVersion,
		ID:              uuid.NewString(),
		CreatedAt:       time.Now(),
		DevFlowVersion:  e.version,
		IncludesAvatars: opts.IncludeAvatars,
	}

	// Server identity first
	if err := e.exportServer(ctx, zw, manifest); err != nil {
		return nil, fmt.Errorf("export server: %w", err)
	}

	// Entities in dependency order
	counts := &manifest.Counts

	exportSteps := []struct {
		name string
		fn   func(context.Context, *zip.Writer) (int, error)
		dest *int
	}{
		{"users", e.exportUsers, &counts.Users},
		{"tags", e.exportTags, &counts.Tags},
		{"questions", e.exportQuestions, &counts.Questions},
		{"tag_questions", e.exportTagQuestions, &counts.TagQuestions},
		{"answers", e.exportAnswers, &counts.Answers},
		{"votes", e.exportVotes, &counts.Votes},
	}

	for _, step := range exportSteps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		n, err := step.fn(ctx, zw)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", step.name, err)
		}
		*step.dest = n
	}

	// Avatar files (optional, large)
	if opts.IncludeAvatars {
		n, err := e.exportAvatars(ctx, zw)
		if err != nil {
			return nil, fmt.Errorf("export avatars: %w", err)
		}
		counts.Avatars = n
	}

	// Manifest last so it carries final counts
	if err := e.writeManifest(zw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, _ := os.Stat(opts.OutputPath)

	return &BackupResult{
		Path:     opts.OutputPath,
		Size:     info.Size(),
		Counts:   *counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// exportEntities streams one entity type into a JSONL file within the zip.
func exportEntities[T any](zw *zip.Writer, path string, seq iter.Seq2[*T, error]) (int, error) {
	w, err := stream.NewWriter(zw, path)
	if err != nil {
		return 0, err
	}

	for entity, err := range seq {
		if err != nil {
			return w.Count(), err
		}
		if err := w.Write(entity); err != nil {
			return w.Count(), err
		}
	}

	return w.Count(), nil
}

func (e *Exporter) exportUsers(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/users.jsonl", e.store.StreamUsers(ctx))
}

func (e *Exporter) exportTags(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/tags.jsonl", e.store.StreamTags(ctx))
}

func (e *Exporter) exportQuestions(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/questions.jsonl", e.store.StreamQuestions(ctx))
}

func (e *Exporter) exportTagQuestions(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/tag_questions.jsonl", e.store.StreamTagQuestions(ctx))
}

func (e *Exporter) exportAnswers(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/answers.jsonl", e.store.StreamAnswers(ctx))
}

func (e *Exporter) exportVotes(ctx context.Context, zw *zip.Writer) (int, error) {
	return exportEntities(zw, "entities/votes.jsonl", e.store.StreamVotes(ctx))
}

// exportAvatars copies avatar files into the archive for every user that has
// one. Missing files are skipped, the user record still restores without its
// image.
func (e *Exporter) exportAvatars(ctx context.Context, zw *zip.Writer) (int, error) {
	count := 0

	for user, err := range e.store.StreamUsers(ctx) {
		if err != nil {
			return count, err
		}
		if ctx.Err() != nil {
			return count, ctx.Err()
		}

		if user.AvatarHash == "" {
			continue
		}

		srcPath := filepath.Join(e.dataDir, "avatars", user.ID+".img")
		archivePath := fmt.Sprintf("avatars/%s.img", user.ID)

		if err := copyFileToZip(zw, srcPath, archivePath); err != nil {
			continue
		}
		count++
	}

	return count, nil
}

func copyFileToZip(zw *zip.Writer, srcPath, archivePath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(archivePath)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	return err
}

func (e *Exporter) exportServer(ctx context.Context, zw *zip.Writer, m *Manifest) error {
	instance, err := e.store.GetInstance(ctx)
	if err != nil {
		return err
	}

	m.ServerID = instance.ID
	m.ServerName = instance.Name

	w, err := zw.Create("server.json")
	if err != nil {
		return err
	}

	return json.MarshalWrite(w, instance)
}

func (e *Exporter) writeManifest(zw *zip.Writer, m *Manifest) error {
	w, err := zw.Create("manifest.json")
	if err != nil {
		return err
	}
	return json.MarshalWrite(w, m)
}
