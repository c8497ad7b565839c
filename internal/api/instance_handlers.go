package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerInstanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getInstance",
		Method:      http.MethodGet,
		Path:        "/api/v1/instance",
		Summary:     "Get instance info",
		Description: "Returns the public server instance configuration. Clients probe this before setup.",
		Tags:        []string{"Instance"},
	}, s.handleGetInstance)
}

// InstanceResponse contains the public instance configuration.
type InstanceResponse struct {
	ID            string    `json:"id" doc:"Instance ID"`
	Name          string    `json:"name" doc:"Instance display name"`
	Version       string    `json:"version" doc:"Server version"`
	RemoteURL     string    `json:"remote_url,omitempty" doc:"Advertised remote URL"`
	SetupRequired bool      `json:"setup_required" doc:"True until the root user has been created"`
	CreatedAt     time.Time `json:"created_at" doc:"Instance creation time"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last configuration change"`
}

// InstanceOutput wraps the instance response for Huma.
type InstanceOutput struct {
	Body InstanceResponse
}

func (s *Server) handleGetInstance(ctx context.Context, _ *struct{}) (*InstanceOutput, error) {
	instance, err := s.services.Instance.GetInstance(ctx)
	if err != nil {
		return nil, err
	}

	return &InstanceOutput{
		Body: InstanceResponse{
			ID:            instance.ID,
			Name:          instance.Name,
			Version:       instance.Version,
			RemoteURL:     instance.RemoteUrl,
			SetupRequired: !instance.HasRootUser,
			CreatedAt:     instance.CreatedAt,
			UpdatedAt:     instance.UpdatedAt,
		},
	}, nil
}
