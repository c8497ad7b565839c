package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/devflowapp/devflow-server/internal/backup"
)

func (s *Server) registerAdminBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/backups",
		Summary:     "Create backup",
		Description: "Exports the full store to a zip archive. Root only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups",
		Summary:     "List backups",
		Description: "Returns all backup archives, newest first. Root only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBackup",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/backups/{id}",
		Summary:     "Delete backup",
		Description: "Deletes a backup archive. Root only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/backups/{id}/restore",
		Summary:     "Restore backup",
		Description: "Clears the store and replays a backup archive into it. All sessions are revoked. Root only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRestoreBackup)
}

// === DTOs ===

// CreateBackupRequest configures backup creation.
type CreateBackupRequest struct {
	IncludeAvatars bool `json:"include_avatars,omitempty" doc:"Include avatar image files in the archive"`
}

// CreateBackupInput wraps the create backup request for Huma.
type CreateBackupInput struct {
	Body CreateBackupRequest
}

// BackupResultOutput wraps the backup result for Huma.
type BackupResultOutput struct {
	Body backup.BackupResult
}

// BackupListResponse contains the available backups.
type BackupListResponse struct {
	Backups []backup.BackupInfo `json:"backups" doc:"Available backups, newest first"`
}

// BackupListOutput wraps the backup list for Huma.
type BackupListOutput struct {
	Body BackupListResponse
}

// BackupIDInput identifies a backup by path parameter.
type BackupIDInput struct {
	ID string `path:"id" doc:"Backup ID"`
}

// RestoreResultOutput wraps the restore result for Huma.
type RestoreResultOutput struct {
	Body backup.RestoreResult
}

// === Handlers ===

func (s *Server) handleCreateBackup(ctx context.Context, input *CreateBackupInput) (*BackupResultOutput, error) {
	if _, err := s.RequireRoot(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Backup.Create(ctx, backup.BackupOptions{
		IncludeAvatars: input.Body.IncludeAvatars,
	})
	if err != nil {
		return nil, err
	}

	return &BackupResultOutput{Body: *result}, nil
}

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*BackupListOutput, error) {
	if _, err := s.RequireRoot(ctx); err != nil {
		return nil, err
	}

	backups, err := s.services.Backup.List(ctx)
	if err != nil {
		return nil, err
	}

	return &BackupListOutput{Body: BackupListResponse{Backups: backups}}, nil
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *BackupIDInput) (*MessageOutput, error) {
	if _, err := s.RequireRoot(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Backup.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Backup deleted"}}, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *BackupIDInput) (*RestoreResultOutput, error) {
	if _, err := s.RequireRoot(ctx); err != nil {
		return nil, err
	}

	info, err := s.services.Backup.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Restore.Restore(ctx, info.Path)
	if err != nil {
		return nil, err
	}

	return &RestoreResultOutput{Body: *result}, nil
}
