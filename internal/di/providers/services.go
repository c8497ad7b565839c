package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/backup"
	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/media/images"
	"github.com/devflowapp/devflow-server/internal/service"
	"github.com/devflowapp/devflow-server/internal/validation"
	"github.com/devflowapp/devflow-server/internal/version"
)

// ProvideInstanceService provides the instance service.
func ProvideInstanceService(i do.Injector) (*service.InstanceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	cfg := do.MustInvoke[*config.Config](i)

	return service.NewInstanceService(storeHandle.Store, log.Logger, cfg), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	instanceService := do.MustInvoke[*service.InstanceService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, instanceService, validator, log.Logger), nil
}

// ProvideUserService provides the user profile service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	processor := do.MustInvoke[*images.Processor](i)
	avatars := do.MustInvoke[*AvatarStorage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, processor, avatars.Storage, log.Logger), nil
}

// ProvideQuestionService provides the question service.
func ProvideQuestionService(i do.Injector) (*service.QuestionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQuestionService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideAnswerService provides the answer service.
func ProvideAnswerService(i do.Injector) (*service.AnswerService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnswerService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideStatsService provides the analytics stats service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	snapshot := do.MustInvoke[*SnapshotHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle.Store, snapshot.Store, log.Logger), nil
}

// ProvideBackupService provides the backup service.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	backupDir := cfg.Backup.Dir
	if backupDir == "" {
		backupDir = filepath.Join(cfg.Data.BasePath, "backups")
	}

	return backup.NewBackupService(storeHandle.Store, backupDir, cfg.Data.BasePath, version.Server, log.Logger), nil
}

// ProvideRestoreService provides the restore service.
func ProvideRestoreService(i do.Injector) (*backup.RestoreService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewRestoreService(storeHandle.Store, cfg.Data.BasePath, log.Logger), nil
}
