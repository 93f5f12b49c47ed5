package schedule

import (
	"errors"

	"meraki-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for scheduled tasks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the schedule routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/schedules")
	group.Get("/", h.HandleList)
	group.Post("/", h.HandleCreate)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", h.HandleUpdate)
	group.Delete("/:id", h.HandleDelete)
	group.Post("/:id/run", h.HandleRunNow)
}

// HandleList lists scheduled tasks.
// @Summary List Scheduled Tasks
// @Tags schedules
// @Produce json
// @Success 200 {array} ScheduledSyncTask
// @Router /schedules [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	tasks, err := h.service.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(tasks)
}

// HandleGet returns one scheduled task.
// @Summary Get Scheduled Task
// @Tags schedules
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} ScheduledSyncTask
// @Failure 404 {object} map[string]string "Not Found"
// @Router /schedules/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(t)
}

// HandleCreate stores a new scheduled task.
// @Summary Create Scheduled Task
// @Description Omitted components default to enabled; frequency defaults to daily and execution mode to auto.
// @Tags schedules
// @Accept json
// @Produce json
// @Param task body ScheduledSyncTask true "Task"
// @Success 201 {object} ScheduledSyncTask
// @Failure 400 {object} map[string]string "Invalid task"
// @Router /schedules [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	t := NewTask()
	if err := c.BodyParser(&t); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.Create(c.Context(), &t); err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Scheduled task created", zap.String("task", t.Name), zap.Timep("next_run", t.NextRun))
	return c.Status(fiber.StatusCreated).JSON(t)
}

// HandleUpdate replaces a scheduled task definition.
// @Summary Update Scheduled Task
// @Tags schedules
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param task body ScheduledSyncTask true "Task"
// @Success 200 {object} ScheduledSyncTask
// @Failure 400 {object} map[string]string "Invalid task"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Task running"
// @Router /schedules/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if err := c.BodyParser(t); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.Update(c.Context(), id, t); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(t)
}

// HandleDelete removes a scheduled task.
// @Summary Delete Scheduled Task
// @Tags schedules
// @Param id path int true "Task ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not Found"
// @Router /schedules/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRunNow executes a task in the background.
// @Summary Run Scheduled Task Now
// @Description Executes the task immediately. The outcome is recorded on the task; its next run is unchanged.
// @Tags schedules
// @Produce json
// @Param id path int true "Task ID"
// @Success 202 {object} ScheduledSyncTask
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Task running"
// @Router /schedules/{id}/run [post]
func (h *Handler) HandleRunNow(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.service.RunNow(id)
	if err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Scheduled task triggered", zap.Uint("task_id", id))
	return c.Status(fiber.StatusAccepted).JSON(t)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidTask):
		status = fiber.StatusBadRequest
	case errors.Is(err, ErrTaskRunning):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error("Schedule request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func pathID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}
