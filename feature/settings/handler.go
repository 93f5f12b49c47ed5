package settings

import (
	"errors"

	"meraki-sync/core/logger"
	"meraki-sync/core/settings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync settings.
type Handler struct {
	repo   *settings.Repository
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(repo *settings.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes registers the settings routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/settings")
	group.Get("/", h.HandleGetSettings)
	group.Put("/", h.HandleUpdateSettings)
}

// HandleGetSettings returns the current settings.
// @Summary Get Settings
// @Tags settings
// @Produce json
// @Success 200 {object} settings.PluginSettings
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /settings [get]
func (h *Handler) HandleGetSettings(c *fiber.Ctx) error {
	row, err := h.repo.Get(c.Context())
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Failed to load settings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(row)
}

// HandleUpdateSettings replaces the settings.
// @Summary Update Settings
// @Description Replaces the device role mapping, name transforms, tags, throttling and worker settings.
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body settings.PluginSettings true "Settings"
// @Success 200 {object} settings.PluginSettings
// @Failure 400 {object} map[string]string "Invalid settings"
// @Router /settings [put]
func (h *Handler) HandleUpdateSettings(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	// Start from the stored row so that omitted fields keep their values.
	row, err := h.repo.Get(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if err := c.BodyParser(row); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.repo.Update(c.Context(), row); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, settings.ErrInvalidSettings) {
			status = fiber.StatusBadRequest
		}
		l.Warn("Settings update rejected", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Settings updated",
		zap.Bool("throttling", row.EnableAPIThrottling),
		zap.Int("requests_per_second", row.APIRequestsPerSecond),
		zap.Bool("multithreading", row.EnableMultithreading),
	)
	return c.JSON(row)
}
