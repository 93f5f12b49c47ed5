package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"meraki-sync/core/loader"
	"meraki-sync/core/logger"
	"meraki-sync/core/middleware/auth"
	"meraki-sync/core/middleware/rayid"
	"meraki-sync/feature/health"
	"meraki-sync/feature/rules"
	"meraki-sync/feature/schedule"
	"meraki-sync/feature/settings"
	"meraki-sync/feature/sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "meraki-sync/docs/swagger"
)

// @title Meraki Sync API
// @version 1.0
// @description Synchronizes a Meraki Dashboard inventory into the DCIM store.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server, initializes all enabled features and runs scheduled syncs.`,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := bootstrap(context.Background())
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer rt.close()
		logg := rt.logger
		zap.ReplaceGlobals(logg)
		cfg := rt.cfg

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			JSONEncoder:           json.Marshal,
			JSONDecoder:           json.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				var fe *fiber.Error
				if errors.As(err, &fe) {
					code = fe.Code
				}
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})

		syncFeature := sync.NewFeature(rt.engine, rt.ledger, rt.archiver, logg.Named("sync"))
		scheduleFeature := schedule.NewFeature(rt.db, rt.engine, logg.Named("schedule"))

		mgr := loader.NewManager(logg)
		mgr.Register(syncFeature)
		mgr.Register(rules.NewFeature(rt.rules, rt.settings, logg.Named("rules")))
		mgr.Register(scheduleFeature)
		mgr.Register(settings.NewFeature(rt.settings, logg.Named("settings")))
		mgr.Register(health.NewFeature(health.Dependencies{
			DB:        rt.db,
			Models:    allModels(),
			Inventory: rt.client,
			Storage:   rt.storage,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Prefix:    cfg.Storage.ArchivePrefix,
		}, logg.Named("health")))

		// RayID first so every log line below carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)

		api := app.Group(cfg.Server.NormalizedBasePath())
		api.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{"/swagger"}}))

		if err := mgr.LoadAll(api); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		if _, err := scheduleFeature.Service().RecoverInterrupted(cmd.Context()); err != nil {
			logg.Error("Failed to recover interrupted scheduled tasks", zap.Error(err))
		}

		var runner *schedule.Runner
		if cfg.Server.ScheduleRunner {
			runner, err = schedule.NewRunner(scheduleFeature.Service(), cfg.Sync.ScheduleTick, logg.Named("schedule"))
			if err != nil {
				logg.Fatal("Failed to create schedule runner", zap.Error(err))
			}
			runner.Start()
		}

		go func() {
			logg.Info("Starting server",
				zap.String("port", cfg.Server.Port),
				zap.String("base_path", cfg.Server.NormalizedBasePath()),
				zap.Bool("protected", cfg.Server.IsProtected()),
			)
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		if runner != nil {
			runner.Stop()
		}
		_ = app.Shutdown()
		scheduleFeature.Service().Shutdown()
		syncFeature.Service().Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
