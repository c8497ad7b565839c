package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/service"
)

// SessionCleanupJob runs periodic session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		// Initial cleanup on startup
		if count, err := storeHandle.DeleteExpiredSessions(ctx); err != nil {
			log.Warn("Initial session cleanup failed", "error", err)
		} else if count > 0 {
			log.Info("Initial session cleanup completed", "deleted", count)
		}

		for {
			select {
			case <-ticker.C:
				if count, err := storeHandle.DeleteExpiredSessions(ctx); err != nil {
					log.Warn("Session cleanup failed", "error", err)
				} else if count > 0 {
					log.Info("Session cleanup completed", "deleted", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started")

	return &SessionCleanupJob{cancel: cancel}, nil
}

// SnapshotRebuildJob refreshes the SQLite analytics snapshot on an interval.
type SnapshotRebuildJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SnapshotRebuildJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSnapshotRebuildJob provides the periodic snapshot rebuild job.
func ProvideSnapshotRebuildJob(i do.Injector) (*SnapshotRebuildJob, error) {
	statsService := do.MustInvoke[*service.StatsService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	go statsService.RunPeriodicRebuild(ctx, 15*time.Minute)

	log.Info("Snapshot rebuild job started", "interval", "15m")

	return &SnapshotRebuildJob{cancel: cancel}, nil
}
