package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/version"
)

// InstanceService owns the singleton server instance record: the identity
// clients probe before deciding whether to show the setup flow.
type InstanceService struct {
	store  *store.Store
	logger *slog.Logger
	config *config.Config
}

// NewInstanceService creates a new instance service.
func NewInstanceService(s *store.Store, logger *slog.Logger, cfg *config.Config) *InstanceService {
	return &InstanceService{
		store:  s,
		logger: logger,
		config: cfg,
	}
}

// GetInstance retrieves the server instance configuration.
func (s *InstanceService) GetInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		if errors.Is(err, store.ErrInstanceNotFound) {
			return nil, domainerrors.NotFound("instance configuration not found").WithCause(err)
		}
		return nil, fmt.Errorf("get instance: %w", err)
	}

	return instance, nil
}

// InitializeInstance ensures the instance record exists, creating it on
// first run and syncing config-driven fields on every start.
func (s *InstanceService) InitializeInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.InitializeInstance(ctx, s.config.Server.Name, version.Server)
	if err != nil {
		return nil, fmt.Errorf("initialize instance: %w", err)
	}

	changed := false
	if s.config.Server.Name != "" && instance.Name != s.config.Server.Name {
		instance.Name = s.config.Server.Name
		changed = true
	}
	if s.config.Server.RemoteURL != "" && instance.RemoteUrl != s.config.Server.RemoteURL {
		instance.RemoteUrl = s.config.Server.RemoteURL
		changed = true
	}
	if instance.Version != version.Server {
		instance.Version = version.Server
		changed = true
	}

	if changed {
		instance.Touch()
		if err := s.store.UpdateInstance(ctx, instance); err != nil {
			return nil, fmt.Errorf("update instance with config: %w", err)
		}
	}

	return instance, nil
}

// IsSetupRequired reports whether the server still needs its first (root)
// user.
func (s *InstanceService) IsSetupRequired(ctx context.Context) (bool, error) {
	instance, err := s.GetInstance(ctx)
	if err != nil {
		return false, err
	}

	return !instance.HasRootUser, nil
}

// SetRootUser marks the instance as configured. Called exactly once, by the
// setup flow, after the root user commits.
func (s *InstanceService) SetRootUser(ctx context.Context, userID string) error {
	instance, err := s.GetInstance(ctx)
	if err != nil {
		return fmt.Errorf("get instance: %w", err)
	}

	if instance.HasRootUser {
		return domainerrors.AlreadyConfigured("root user already configured")
	}

	instance.HasRootUser = true
	instance.Touch()

	if err := s.store.UpdateInstance(ctx, instance); err != nil {
		return fmt.Errorf("update instance: %w", err)
	}

	s.logger.Info("Root user configured",
		"instance_id", instance.ID,
		"root_user_id", userID,
	)

	return nil
}
