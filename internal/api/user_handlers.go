package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/devflowapp/devflow-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "uploadAvatar",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/me/avatar",
		Summary:     "Upload avatar",
		Description: "Replaces the authenticated user's avatar image (PNG, JPEG, GIF, or WebP, max 10 MB)",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUploadAvatar)
}

// === DTOs ===

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body service.UserView
}

// UploadAvatarInput carries the raw image bytes.
type UploadAvatarInput struct {
	RawBody     []byte
	ContentType string `header:"Content-Type"`
}

// === Handlers ===

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.User.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: *profile}, nil
}

func (s *Server) handleUploadAvatar(ctx context.Context, input *UploadAvatarInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Image data is required")
	}
	if len(input.RawBody) > MaxUploadSize {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, "Image exceeds the 10 MB limit")
	}

	profile, err := s.services.User.UploadAvatar(ctx, userID, input.RawBody)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: *profile}, nil
}

// handleGetAvatar serves avatar images directly, outside the envelope.
// ETag is the image hash, so clients can cache until the avatar changes.
func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	data, hash, err := s.services.User.Avatar(r.Context(), userID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	etag := `"` + hash + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", CacheOneDay)
	w.Header().Set("ETag", etag)
	_, _ = w.Write(data)
}
