package api

import (
	"github.com/devflowapp/devflow-server/internal/backup"
	"github.com/devflowapp/devflow-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Instance *service.InstanceService
	Auth     *service.AuthService
	User     *service.UserService
	Question *service.QuestionService
	Answer   *service.AnswerService
	Tag      *service.TagService
	Stats    *service.StatsService  // SQLite analytics snapshot (root-only endpoints)
	Backup   *backup.BackupService  // Zip archive create/list/delete
	Restore  *backup.RestoreService // Replay an archive into the store
}
