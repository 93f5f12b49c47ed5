package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meraki-sync/core/rules"

	"gorm.io/gorm"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Repository reads and writes the settings row.
type Repository struct {
	db  *gorm.DB
	cfg Config
}

// NewRepository creates a settings repository. cfg seeds the row on first access.
func NewRepository(db *gorm.DB, cfg Config) *Repository {
	return &Repository{db: db, cfg: cfg}
}

// Get returns the settings row, creating it from defaults when missing.
func (r *Repository) Get(ctx context.Context) (*PluginSettings, error) {
	row := newDefaults(r.cfg)
	if err := r.db.WithContext(ctx).Where(PluginSettings{ID: 1}).FirstOrCreate(row).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return row, nil
}

// Update validates and stores the settings row.
func (r *Repository) Update(ctx context.Context, row *PluginSettings) error {
	if err := row.Validate(); err != nil {
		return err
	}
	row.ID = 1
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Snapshot loads the row and freezes it for one run.
func (r *Repository) Snapshot(ctx context.Context) (Settings, error) {
	row, err := r.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Snapshot(row, r.cfg), nil
}

// Validate checks a settings row before it is stored.
func (p *PluginSettings) Validate() error {
	for name, t := range map[string]string{
		"site_name_transform":   p.SiteNameTransform,
		"device_name_transform": p.DeviceNameTransform,
		"vlan_name_transform":   p.VLANNameTransform,
		"ssid_name_transform":   p.SSIDNameTransform,
	} {
		if !rules.Transform(t).Valid() {
			return fmt.Errorf("%w: %s must be one of keep, upper, lower, title", ErrInvalidSettings, name)
		}
	}
	if p.APIRequestsPerSecond < 1 || p.APIRequestsPerSecond > 100 {
		return fmt.Errorf("%w: api_requests_per_second must be between 1 and 100", ErrInvalidSettings)
	}
	if p.MaxWorkerThreads < 1 || p.MaxWorkerThreads > 32 {
		return fmt.Errorf("%w: max_worker_threads must be between 1 and 32", ErrInvalidSettings)
	}
	if strings.TrimSpace(p.DefaultDeviceRole) == "" {
		return fmt.Errorf("%w: default_device_role is required", ErrInvalidSettings)
	}
	return nil
}
