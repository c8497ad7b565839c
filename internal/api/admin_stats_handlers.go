package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/devflowapp/devflow-server/internal/service"
)

func (s *Server) registerAdminStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Get server statistics",
		Description: "Returns totals, top tags, top questions, and recent activity from the analytics snapshot. Root only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetStats)
}

// StatsOutput wraps the stats overview for Huma.
type StatsOutput struct {
	Body service.StatsOverview
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	if _, err := s.RequireRoot(ctx); err != nil {
		return nil, err
	}

	overview, err := s.services.Stats.Overview(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsOutput{Body: *overview}, nil
}

// handleDownloadSnapshot exports the analytics snapshot and serves the raw
// database file, outside the envelope.
func (s *Server) handleDownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	if _, err := s.RequireRoot(r.Context()); err != nil {
		writeRawError(w, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "devflow-snapshot-*")
	if err != nil {
		writeRawError(w, err)
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "snapshot.db")
	if err := s.services.Stats.ExportSnapshot(r.Context(), path); err != nil {
		s.logger.Error("Snapshot export failed", "error", err)
		writeRawError(w, err)
		return
	}

	filename := "devflow-stats-" + time.Now().Format("2006-01-02") + ".db"
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", CacheNoStore)
	http.ServeFile(w, r, path)
}
