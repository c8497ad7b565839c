package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/api"
	"github.com/devflowapp/devflow-server/internal/backup"
	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/mdns"
	"github.com/devflowapp/devflow-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable. It also owns the
// API server's internal resources (rate limiters).
type HTTPServerHandle struct {
	*http.Server
	apiServer *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.apiServer.Shutdown()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	eventsHandle := do.MustInvoke[*EventsManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Instance: do.MustInvoke[*service.InstanceService](i),
		Auth:     do.MustInvoke[*service.AuthService](i),
		User:     do.MustInvoke[*service.UserService](i),
		Question: do.MustInvoke[*service.QuestionService](i),
		Answer:   do.MustInvoke[*service.AnswerService](i),
		Tag:      do.MustInvoke[*service.TagService](i),
		Stats:    do.MustInvoke[*service.StatsService](i),
		Backup:   do.MustInvoke[*backup.BackupService](i),
		Restore:  do.MustInvoke[*backup.RestoreService](i),
	}

	eventsHandler := events.NewHandler(eventsHandle.Manager, log.Logger)

	handler := api.NewServer(storeHandle.Store, services, eventsHandler, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, apiServer: handler}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable.
type MDNSServiceHandle struct {
	*mdns.Service
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.started && h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService provides the mDNS advertisement service.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	instanceService := do.MustInvoke[*service.InstanceService](i)

	// Always initialize instance regardless of mDNS config.
	ctx := context.Background()
	instance, err := instanceService.InitializeInstance(ctx)
	if err != nil {
		return nil, err
	}

	// Log server instance state
	if instance.HasRootUser {
		log.Info("Server instance is configured and ready",
			"instance_id", instance.ID,
			"created_at", instance.CreatedAt,
		)
	} else {
		log.Warn("Server instance needs setup - no root user configured",
			"instance_id", instance.ID,
			"setup_required", true,
		)
	}

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{Service: nil, started: false}, nil
	}

	svc := mdns.NewService(log.Logger)

	// Parse port
	port := 8080
	if _, err := fmt.Sscanf(cfg.Server.Port, "%d", &port); err != nil {
		log.Warn("Failed to parse server port for mDNS, using default", "port", cfg.Server.Port)
	}

	if err := svc.Start(instance, port); err != nil {
		log.Warn("mDNS advertisement unavailable", "error", err)
		// Non-fatal: server works without mDNS (e.g., Docker, cloud)
		return &MDNSServiceHandle{Service: svc, started: false}, nil
	}

	return &MDNSServiceHandle{Service: svc, started: true}, nil
}
