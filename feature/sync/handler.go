package sync

import (
	"errors"
	"strings"

	"meraki-sync/core/ledger"
	"meraki-sync/core/logger"
	"meraki-sync/core/reconcile"
	"meraki-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs and review sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")

	group.Post("/runs", h.HandleStartRun)
	group.Get("/runs", h.HandleListRuns)
	group.Get("/runs/:id", h.HandleGetRun)
	group.Post("/runs/:id/cancel", h.HandleCancelRun)

	group.Get("/reviews", h.HandleListReviews)
	group.Get("/reviews/:id", h.HandleGetReview)
	group.Post("/reviews/:id/items/:item/approve", h.HandleDecideItem(true))
	group.Post("/reviews/:id/items/:item/reject", h.HandleDecideItem(false))
	group.Put("/reviews/:id/items/:item", h.HandleEditItem)
	group.Post("/reviews/:id/approve-all", h.HandleDecideAll(true))
	group.Post("/reviews/:id/reject-all", h.HandleDecideAll(false))
	group.Post("/reviews/:id/apply", h.HandleApplyReview)

	group.Get("/archives", h.HandleListArchives)
	group.Get("/archives/*", h.HandleGetArchive)
	group.Delete("/archives", h.HandlePruneArchives)
	group.Delete("/archives/*", h.HandleRemoveArchive)
}

// StartRequest is the body of a run request.
type StartRequest struct {
	Mode           ledger.Mode           `json:"mode"`
	OrganizationID string                `json:"organization_id"`
	NetworkIDs     []string              `json:"network_ids"`
	Components     *reconcile.Components `json:"components,omitempty"`
}

// HandleStartRun starts a sync run in the background.
// @Summary Start Sync Run
// @Description Starts a sync run in auto, review or dry_run mode. The run executes in the background; poll it by id.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body StartRequest true "Run request"
// @Success 202 {object} ledger.RunRecord "Started run"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/runs [post]
func (h *Handler) HandleStartRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Mode == "" {
		req.Mode = ledger.ModeAuto
	}
	if !req.Mode.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mode must be one of auto, review, dry_run"})
	}
	if len(req.NetworkIDs) > 0 && req.OrganizationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "network_ids require organization_id"})
	}

	run, err := h.service.Start(reconcile.Request{
		Mode:       req.Mode,
		Scope:      reconcile.Scope{OrganizationID: req.OrganizationID, NetworkIDs: req.NetworkIDs},
		Components: req.Components,
	})
	if err != nil {
		l.Error("Failed to start sync run", zap.Error(err))
		return h.fail(c, err)
	}

	l.Info("Sync run started", zap.Uint("run_id", run.ID), zap.String("mode", string(run.Mode)))
	return c.Status(fiber.StatusAccepted).JSON(run)
}

// HandleListRuns lists recent runs.
// @Summary List Sync Runs
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {array} ledger.RunRecord
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/runs [get]
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	runs, err := h.service.ListRuns(c.Context(), utils.ToInt(c.Query("limit")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(runs)
}

// HandleGetRun returns the polling view of a run.
// @Summary Get Sync Run
// @Description Returns status, progress, counters and the first errors of a run.
// @Tags sync
// @Produce json
// @Param id path int true "Run ID"
// @Success 200 {object} RunView
// @Failure 404 {object} map[string]string "Not Found"
// @Router /sync/runs/{id} [get]
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.service.GetRun(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// HandleCancelRun requests cancellation of a running sync.
// @Summary Cancel Sync Run
// @Description Flags a run for cancellation. The run stops at the next organization boundary.
// @Tags sync
// @Produce json
// @Param id path int true "Run ID"
// @Success 202 {object} map[string]string
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Run already finished"
// @Router /sync/runs/{id}/cancel [post]
func (h *Handler) HandleCancelRun(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.CancelRun(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Sync run cancellation requested", zap.Uint("run_id", id))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "cancel_requested"})
}

// HandleListReviews lists review sessions.
// @Summary List Review Sessions
// @Tags reviews
// @Produce json
// @Param status query string false "Session status"
// @Param limit query int false "Maximum number of sessions"
// @Success 200 {array} ledger.ReviewSession
// @Router /sync/reviews [get]
func (h *Handler) HandleListReviews(c *fiber.Ctx) error {
	sessions, err := h.service.ListSessions(c.Context(), ledger.SessionStatus(c.Query("status")), utils.ToInt(c.Query("limit")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessions)
}

// HandleGetReview returns a review session with its staged changes.
// @Summary Get Review Session
// @Tags reviews
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} ledger.ReviewSession
// @Failure 404 {object} map[string]string "Not Found"
// @Router /sync/reviews/{id} [get]
func (h *Handler) HandleGetReview(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	session, err := h.service.GetSession(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(session)
}

// HandleDecideItem returns the handler approving or rejecting one staged change.
// @Summary Decide Staged Change
// @Tags reviews
// @Produce json
// @Param id path int true "Session ID"
// @Param item path int true "Change ID"
// @Success 200 {object} ledger.StagedChange
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /sync/reviews/{id}/items/{item}/approve [post]
// @Router /sync/reviews/{id}/items/{item}/reject [post]
func (h *Handler) HandleDecideItem(approve bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := pathID(c, "id")
		if err != nil {
			return err
		}
		itemID, err := pathID(c, "item")
		if err != nil {
			return err
		}
		change, err := h.service.Decide(c.Context(), sessionID, itemID, approve)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(change)
	}
}

// HandleEditItem stores reviewer overrides for a staged change.
// @Summary Edit Staged Change
// @Description Replaces the data that will be applied for a change. The body is the payload of the change's item type.
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param item path int true "Change ID"
// @Success 200 {object} ledger.StagedChange
// @Failure 400 {object} map[string]string "Invalid payload"
// @Failure 409 {object} map[string]string "Session closed"
// @Router /sync/reviews/{id}/items/{item} [put]
func (h *Handler) HandleEditItem(c *fiber.Ctx) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "item")
	if err != nil {
		return err
	}
	// The request body buffer is reused after the handler returns.
	raw := append([]byte(nil), c.Body()...)
	change, err := h.service.Edit(c.Context(), sessionID, itemID, raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(change)
}

// HandleDecideAll returns the handler approving or rejecting every pending change.
// @Summary Decide All Pending Changes
// @Tags reviews
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} ledger.ReviewSession
// @Failure 409 {object} map[string]string "Session closed"
// @Router /sync/reviews/{id}/approve-all [post]
// @Router /sync/reviews/{id}/reject-all [post]
func (h *Handler) HandleDecideAll(approve bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		session, err := h.service.DecideAll(c.Context(), id, approve)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(session)
	}
}

// HandleApplyReview applies the approved changes of a session.
// @Summary Apply Review Session
// @Tags reviews
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} ledger.ReviewSession
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Session cannot be applied"
// @Router /sync/reviews/{id}/apply [post]
func (h *Handler) HandleApplyReview(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	session, err := h.service.Apply(c.Context(), id)
	if err != nil {
		l.Warn("Review apply failed", zap.Uint("session_id", id), zap.Error(err))
		return h.fail(c, err)
	}
	l.Info("Review applied",
		zap.Uint("session_id", id),
		zap.Int("applied", session.ItemsApplied),
		zap.Int("failed", session.ItemsFailed),
	)
	return c.JSON(session)
}

// HandleListArchives lists archived review sessions.
// @Summary List Review Archives
// @Tags archives
// @Produce json
// @Success 200 {array} ledger.ArchiveObject
// @Failure 503 {object} map[string]string "Archive not configured"
// @Router /sync/archives [get]
func (h *Handler) HandleListArchives(c *fiber.Ctx) error {
	objects, err := h.service.ListArchives(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(objects)
}

// HandleGetArchive reads one archived review session.
// @Summary Get Review Archive
// @Tags archives
// @Produce json
// @Param key path string true "Archive key"
// @Success 200 {object} ledger.ArchiveDocument
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/archives/{key} [get]
func (h *Handler) HandleGetArchive(c *fiber.Ctx) error {
	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "archive key is required"})
	}
	doc, err := h.service.OpenArchive(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(doc)
}

// HandleRemoveArchive deletes one archived review session.
// @Summary Remove Review Archive
// @Tags archives
// @Produce json
// @Param key path string true "Archive key"
// @Success 204
// @Failure 404 {object} map[string]string "Not Found"
// @Router /sync/archives/{key} [delete]
func (h *Handler) HandleRemoveArchive(c *fiber.Ctx) error {
	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "archive key is required"})
	}
	if err := h.service.RemoveArchive(c.Context(), key); err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Archive removed", zap.String("key", key))
	return c.SendStatus(fiber.StatusNoContent)
}

// HandlePruneArchives removes old archives.
// @Summary Prune Review Archives
// @Tags archives
// @Produce json
// @Param older_than_days query int true "Remove archives older than this many days"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /sync/archives [delete]
func (h *Handler) HandlePruneArchives(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	removed, err := h.service.PruneArchives(c.Context(), utils.ToInt(c.Query("older_than_days")))
	if err != nil {
		l.Error("Archive prune failed", zap.Error(err))
		return h.fail(c, err)
	}
	l.Info("Archives pruned", zap.Int("removed", removed))
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrImmutable):
		return fiber.StatusConflict
	case errors.Is(err, ledger.ErrInvalidPayload):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrArchiveDisabled):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}
