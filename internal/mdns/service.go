// Package mdns provides mDNS/Zeroconf service advertisement for DevFlow server discovery.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/version"
)

// ServiceType is the mDNS service type for DevFlow servers.
const ServiceType = "_devflow._tcp"

// Service manages mDNS advertisement for the DevFlow server.
// It allows local network discovery of the server without manual configuration.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the server via mDNS.
// It should be called after the HTTP server is running.
//
// Errors are typically non-fatal (e.g., multicast not supported in Docker).
func (s *Service) Start(instance *domain.Instance, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop existing server if running (for restart scenarios)
	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	// Get hostname for mDNS instance name
	host, err := os.Hostname()
	if err != nil {
		host = "devflow-server"
	}

	// Build TXT records with server metadata
	txtRecords := []string{
		fmt.Sprintf("id=%s", instance.ID),
		fmt.Sprintf("name=%s", instance.Name),
		fmt.Sprintf("version=%s", version.Server),
		fmt.Sprintf("api=%s", version.API),
	}

	// Only include remote URL if configured
	if instance.RemoteUrl != "" {
		txtRecords = append(txtRecords, fmt.Sprintf("remote=%s", instance.RemoteUrl))
	}

	service, err := mdns.NewMDNSService(
		host,        // Instance name (hostname)
		ServiceType, // Service type (_devflow._tcp)
		"",          // Domain (empty = .local)
		"",          // Host (empty = use system hostname)
		port,        // Port
		nil,         // IPs (nil = all interfaces)
		txtRecords,  // TXT records
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone: service,
	})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}

	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", instance.Name,
		"id", instance.ID,
	)

	return nil
}

// Stop stops mDNS advertising.
// Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}

// Refresh re-advertises with updated instance details, e.g. after the
// server name changes.
func (s *Service) Refresh(instance *domain.Instance, port int) error {
	return s.Start(instance, port)
}
