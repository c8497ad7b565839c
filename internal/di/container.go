// Package di provides dependency injection configuration for the DevFlow server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/backup"
	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/di/providers"
	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/media/images"
	"github.com/devflowapp/devflow-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideEventsManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSnapshotStore)

	// Storage layer
	do.Provide(injector, providers.ProvideAvatarStorage)
	do.Provide(injector, providers.ProvideImageProcessor)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideInstanceService)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideQuestionService)
	do.Provide(injector, providers.ProvideAnswerService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideRestoreService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)
	do.Provide(injector, providers.ProvideSnapshotRebuildJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.EventsManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SnapshotHandle](injector)
	_ = do.MustInvoke[*providers.AvatarStorage](injector)
	_ = do.MustInvoke[*images.Processor](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.InstanceService](injector)
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.QuestionService](injector)
	_ = do.MustInvoke[*service.AnswerService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*backup.BackupService](injector)
	_ = do.MustInvoke[*backup.RestoreService](injector)

	// mDNS also initializes the instance record, so it runs before the
	// HTTP server starts accepting requests.
	if _, err := do.Invoke[*providers.MDNSServiceHandle](injector); err != nil {
		return err
	}

	// Workers
	if _, err := do.Invoke[*providers.SessionCleanupJob](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SnapshotRebuildJob](injector); err != nil {
		return err
	}

	// Server last
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
