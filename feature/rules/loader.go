package rules

import (
	"meraki-sync/core/rules"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface for rule management.
type Feature struct {
	handler *Handler
}

// NewFeature creates a new Rules feature.
func NewFeature(repo *rules.Repository, src SettingsSource, logger *zap.Logger) *Feature {
	svc := NewService(repo, src, logger)
	return &Feature{handler: NewHandler(svc, repo)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "rules"
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
