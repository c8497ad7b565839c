package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/store/sqlite"
)

// EventsManagerHandle wraps the live events manager with its context for
// lifecycle management.
type EventsManagerHandle struct {
	*events.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *EventsManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideEventsManager provides the server-sent events manager.
func ProvideEventsManager(i do.Injector) (*EventsManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := events.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("Events manager started")

	return &EventsManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	eventsHandle := do.MustInvoke[*EventsManagerHandle](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger, eventsHandle.Manager)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// SnapshotHandle wraps the SQLite analytics snapshot with shutdown capability.
type SnapshotHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *SnapshotHandle) Shutdown() error {
	return h.Close()
}

// ProvideSnapshotStore provides the SQLite analytics snapshot store.
func ProvideSnapshotStore(i do.Injector) (*SnapshotHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := filepath.Join(cfg.Data.BasePath, "stats.db")
	snapshot, err := sqlite.Open(path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Analytics snapshot opened", "path", path)

	return &SnapshotHandle{Store: snapshot}, nil
}
