package health

import (
	"context"
	"errors"

	"meraki-sync/core/meraki"
	"meraki-sync/core/storage"
	"meraki-sync/feature/health/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStorageDisabled is returned by the storage check when no bucket is configured.
var ErrStorageDisabled = errors.New("archive storage is not configured")

// Dependencies are the services checked. Nil members are reported as not configured.
type Dependencies struct {
	DB        *gorm.DB
	Models    []any
	Inventory meraki.Client
	Storage   storage.Client
	Bucket    string
	Region    string
	Prefix    string
}

// Service runs health checks.
type Service struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewService creates a new health service.
func NewService(deps Dependencies, logger *zap.Logger) *Service {
	return &Service{deps: deps, logger: logger}
}

// CheckDatabase compares the schema with the models.
func (s *Service) CheckDatabase(ctx context.Context) (*checks.SchemaReport, error) {
	if s.deps.DB == nil {
		return nil, errors.New("database connection is nil")
	}
	return checks.CheckSchema(s.deps.DB.WithContext(ctx), s.deps.Models)
}

// CheckInventory calls the Meraki API.
func (s *Service) CheckInventory(ctx context.Context) (*checks.InventoryReport, error) {
	if s.deps.Inventory == nil {
		return nil, errors.New("inventory client is not configured")
	}
	return checks.CheckInventory(ctx, s.deps.Inventory), nil
}

// CheckStorage inspects the archive bucket.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.deps.Storage == nil || s.deps.Bucket == "" {
		return nil, ErrStorageDisabled
	}
	return checks.CheckStorage(ctx, s.deps.Storage, s.deps.Bucket, s.deps.Prefix)
}

// FixStorage creates the archive bucket.
func (s *Service) FixStorage(ctx context.Context) error {
	if s.deps.Storage == nil || s.deps.Bucket == "" {
		return ErrStorageDisabled
	}
	if err := checks.FixStorage(ctx, s.deps.Storage, s.deps.Bucket, s.deps.Region); err != nil {
		return err
	}
	s.logger.Info("Created archive bucket", zap.String("bucket", s.deps.Bucket))
	return nil
}
