package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"meraki-sync/core/database"
	"meraki-sync/core/logger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/server"
	"meraki-sync/core/settings"
	"meraki-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the review archive bucket (S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Meraki holds the Dashboard API client configuration.
	Meraki meraki.Config `mapstructure:"meraki"`
	// Sync holds the defaults of the persisted sync settings.
	Sync settings.Config `mapstructure:"sync"`
}

// LoadConfig reads dir/.env when present, then the environment, on top of the
// `default` struct tags.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	registerDefaults(v, reflect.TypeOf(Config{}), "")

	// SERVER_PORT -> server.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// registerDefaults walks the mapstructure tags of t. Every key gets a default, even an
// empty one, so that AutomaticEnv can resolve it during Unmarshal.
func registerDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			registerDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// Validate rejects settings that would only fail later at connection time.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case database.DriverMySQL, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}
	if c.Meraki.Throttle && c.Meraki.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("meraki.requests_per_second must be positive when throttling"))
	}
	if c.Server.ScheduleRunner && strings.TrimSpace(c.Sync.ScheduleTick) == "" {
		errs = append(errs, errors.New("sync.schedule_tick is required when the schedule runner is on"))
	}
	return errors.Join(errs...)
}
