package health

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface for health checks.
type Feature struct {
	handler *Handler
}

// NewFeature creates a new Health feature.
func NewFeature(deps Dependencies, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(NewService(deps, logger))}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "health"
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
