package schedule

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface for scheduled tasks.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new Schedule feature.
func NewFeature(db *gorm.DB, syncer Syncer, logger *zap.Logger) *Feature {
	svc := NewService(db, syncer, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "schedule"
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

// Service exposes the feature service to the schedule runner.
func (f *Feature) Service() *Service {
	return f.service
}
