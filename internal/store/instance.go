package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
)

var (
	// instanceKey is the singleton key for the instance record.
	instanceKey = []byte("instance:config")

	// ErrInstanceNotFound is returned when no instance config exists.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceExists is returned when trying to create an instance that already exists.
	ErrInstanceExists = errors.New("instance already exists")
)

// GetInstance retrieves the singleton instance configuration.
// Returns ErrInstanceNotFound if no instance exists.
func (s *Store) GetInstance(_ context.Context) (*domain.Instance, error) {
	var instance domain.Instance

	err := s.get(instanceKey, &instance)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &instance, nil
}

// CreateInstance creates a new singleton instance configuration.
// Returns ErrInstanceExists if an instance already exists.
func (s *Store) CreateInstance(_ context.Context, name, version string) (*domain.Instance, error) {
	exists, err := s.exists(instanceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check instance existence: %w", err)
	}

	if exists {
		return nil, ErrInstanceExists
	}

	now := time.Now()
	instance := &domain.Instance{
		ID:          "server-001", // Single server ID
		Name:        name,
		Version:     version,
		HasRootUser: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.set(instanceKey, instance); err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Instance configuration created",
			"id", instance.ID,
			"name", instance.Name,
		)
	}

	return instance, nil
}

// UpdateInstance updates the instance configuration.
func (s *Store) UpdateInstance(ctx context.Context, instance *domain.Instance) error {
	_, err := s.GetInstance(ctx)
	if err != nil {
		return err
	}

	instance.UpdatedAt = time.Now()

	if err := s.set(instanceKey, instance); err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Instance configuration updated",
			"id", instance.ID,
			"has_root_user", instance.HasRootUser,
		)
	}

	return nil
}

// InitializeInstance ensures an instance configuration exists, creating
// one on first boot. Returns the instance config.
func (s *Store) InitializeInstance(ctx context.Context, name, version string) (*domain.Instance, error) {
	instance, err := s.GetInstance(ctx)
	if err == nil {
		// Keep the stored version current across upgrades.
		if instance.Version != version {
			instance.Version = version
			if err := s.UpdateInstance(ctx, instance); err != nil {
				return nil, err
			}
		}
		if s.logger != nil {
			s.logger.Info("Instance configuration found",
				"id", instance.ID,
				"has_root_user", instance.HasRootUser,
			)
		}
		return instance, nil
	}

	if errors.Is(err, ErrInstanceNotFound) {
		if s.logger != nil {
			s.logger.Info("No instance configuration found, creating new instance")
		}
		return s.CreateInstance(ctx, name, version)
	}

	return nil, fmt.Errorf("failed to initialize instance: %w", err)
}
