package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/logger"
	"github.com/devflowapp/devflow-server/internal/media/images"
)

// AvatarStorage wraps the avatar image storage.
type AvatarStorage struct {
	*images.Storage
}

// ProvideAvatarStorage provides the avatar image storage.
func ProvideAvatarStorage(i do.Injector) (*AvatarStorage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	avatars, err := images.NewStorageWithSubdir(cfg.Data.BasePath, "avatars")
	if err != nil {
		return nil, fmt.Errorf("avatar storage: %w", err)
	}

	log.Info("Avatar storage initialized")

	return &AvatarStorage{Storage: avatars}, nil
}

// ProvideImageProcessor provides the image processor for avatar uploads.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	avatars := do.MustInvoke[*AvatarStorage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewProcessor(avatars.Storage, log.Logger), nil
}
