package health

import (
	"errors"

	"meraki-sync/core/logger"
	"meraki-sync/core/utils"
	"meraki-sync/feature/health/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for health checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the health routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/health")
	group.Get("/", h.HandleHealth)
	group.Get("/database", h.HandleDatabase)
	group.Get("/inventory", h.HandleInventory)
	group.Get("/storage", h.HandleStorage)
}

// CheckResult is one entry of the combined report.
type CheckResult struct {
	Status string `json:"status"` // "ok", "error", "disabled"
	Error  string `json:"error,omitempty"`
	Report any    `json:"report,omitempty"`
}

// HandleHealth runs every check.
// @Summary Run All Health Checks
// @Description Checks the database schema, Meraki API reachability and the archive bucket.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]CheckResult "Combined Report"
// @Failure 503 {object} map[string]CheckResult "At least one check failed"
// @Router /health [get]
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	ctx := c.Context()
	report := make(map[string]CheckResult, 3)
	healthy := true

	if db, err := h.service.CheckDatabase(ctx); err != nil {
		report["database"] = CheckResult{Status: "error", Error: err.Error()}
		healthy = false
	} else {
		report["database"] = CheckResult{Status: matched(db.Matched), Report: db}
		healthy = healthy && db.Matched
	}

	if inv, err := h.service.CheckInventory(ctx); err != nil {
		report["inventory"] = CheckResult{Status: "error", Error: err.Error()}
		healthy = false
	} else {
		report["inventory"] = CheckResult{Status: matched(inv.Reachable), Report: inv}
		healthy = healthy && inv.Reachable
	}

	switch st, err := h.service.CheckStorage(ctx); {
	case errors.Is(err, ErrStorageDisabled):
		report["storage"] = CheckResult{Status: "disabled"}
	case err != nil:
		report["storage"] = CheckResult{Status: "error", Error: err.Error()}
		healthy = false
	default:
		report["storage"] = CheckResult{Status: matched(st.Exists), Report: st}
		healthy = healthy && st.Exists
	}

	if !healthy {
		l.Warn("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleDatabase checks the database schema.
// @Summary Check Database Schema
// @Description Checks that every table and column of the sync models exists.
// @Tags health
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /health/database [get]
func (h *Handler) HandleDatabase(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckDatabase(c.Context())
	if err != nil {
		l.Error("Database schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Database schema mismatch", zap.Strings("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleInventory checks the Meraki API.
// @Summary Check Meraki API
// @Tags health
// @Produce json
// @Success 200 {object} checks.InventoryReport "Inventory Report"
// @Failure 503 {object} checks.InventoryReport "Unreachable"
// @Router /health/inventory [get]
func (h *Handler) HandleInventory(c *fiber.Ctx) error {
	report, err := h.service.CheckInventory(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Reachable {
		logger.WithRayID(h.service.logger, c).Warn("Meraki API unreachable", zap.String("error", report.Error))
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleStorage checks and optionally fixes the archive bucket.
// @Summary Check Archive Bucket
// @Description Checks that the review archive bucket exists. Optionally creates it.
// @Tags health
// @Produce json
// @Param fix query boolean false "Create the bucket when missing"
// @Success 200 {object} checks.StorageReport "Storage Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Failure 503 {object} map[string]string "Archive not configured"
// @Router /health/storage [get]
func (h *Handler) HandleStorage(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	report, err := h.service.CheckStorage(c.Context())
	if errors.Is(err, ErrStorageDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists && fix {
		l.Info("Attempting to create archive bucket")
		if err := h.service.FixStorage(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to create bucket",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "fixed", "report": checks.StorageReport{
			Bucket: report.Bucket,
			Exists: true,
			Prefix: report.Prefix,
		}})
	}
	return c.JSON(report)
}

func matched(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
