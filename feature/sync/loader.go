package sync

import (
	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface for sync runs and reviews.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new Sync feature.
func NewFeature(engine *reconcile.Engine, repo *ledger.Repository, archiver *ledger.StorageArchiver, logger *zap.Logger) *Feature {
	svc := NewService(engine, repo, archiver, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "sync"
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

// Service exposes the feature service so that the server can shut it down.
func (f *Feature) Service() *Service {
	return f.service
}
