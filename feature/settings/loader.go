package settings

import (
	"meraki-sync/core/settings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface for the settings endpoints.
type Feature struct {
	handler *Handler
}

// NewFeature creates a new Settings feature.
func NewFeature(repo *settings.Repository, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(repo, logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "settings"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
