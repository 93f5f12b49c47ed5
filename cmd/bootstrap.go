package cmd

import (
	"context"
	"fmt"
	"time"

	"meraki-sync/core/config"
	"meraki-sync/core/database"
	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/logger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/reconcile"
	"meraki-sync/core/rules"
	"meraki-sync/core/settings"
	"meraki-sync/core/storage"
	"meraki-sync/feature/schedule"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the services shared by the server and the CLI commands.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	client   *meraki.HTTPClient
	storage  storage.Client
	archiver *ledger.StorageArchiver
	ledger   *ledger.Repository
	settings *settings.Repository
	rules    *rules.Repository
	engine   *reconcile.Engine
}

// allModels lists every table managed by the service.
func allModels() []any {
	var models []any
	models = append(models, dcim.Models()...)
	models = append(models, ledger.Models()...)
	models = append(models, rules.Models()...)
	models = append(models, settings.Models()...)
	models = append(models, schedule.Models()...)
	return models
}

// loadConfigAndLogger reads the configuration and builds the logger.
func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// bootstrap connects the database, migrates it and wires the sync engine.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, l, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db, allModels()...); err != nil {
		return nil, err
	}

	client, err := meraki.NewHTTPClient(cfg.Meraki, l.Named("meraki"))
	if err != nil {
		return nil, fmt.Errorf("failed to create Meraki client: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   l,
		db:       db,
		client:   client,
		settings: settings.NewRepository(db, cfg.Sync),
		rules:    rules.NewRepository(db),
	}

	var opts []ledger.Option
	if cfg.Storage.Bucket != "" {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		rt.storage = store

		timeout := time.Duration(cfg.Storage.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ensureCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := storage.EnsureBucket(ensureCtx, store, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			l.Warn("Archive bucket unavailable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		cancel()

		rt.archiver = ledger.NewStorageArchiver(store, cfg.Storage.Bucket, cfg.Storage.ArchivePrefix)
		opts = append(opts, ledger.WithArchiver(rt.archiver))
	}
	rt.ledger = ledger.NewRepository(db, l.Named("ledger"), opts...)

	loader := func(ctx context.Context, o rules.Options) (*rules.Set, error) {
		return rules.Load(ctx, db, o, l.Named("rules"))
	}
	rt.engine = reconcile.NewEngine(client, dcim.NewGormStore(db), rt.ledger, rt.settings, loader, l.Named("reconcile"))
	return rt, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
	if sqlDB, err := rt.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
