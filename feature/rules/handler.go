package rules

import (
	"errors"
	"strings"

	"meraki-sync/core/logger"
	"meraki-sync/core/rules"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Handler handles HTTP requests for naming and prefix rules.
type Handler struct {
	service *Service
	repo    *rules.Repository
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, repo *rules.Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// RegisterRoutes registers the rules routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/rules")

	group.Get("/names", h.HandleListNameRules)
	group.Post("/names", h.HandleCreateNameRule)
	group.Post("/names/preview", h.HandlePreviewNames)
	group.Get("/names/:id", h.HandleGetNameRule)
	group.Put("/names/:id", h.HandleUpdateNameRule)
	group.Delete("/names/:id", h.HandleDeleteNameRule)

	group.Get("/prefixes", h.HandleListPrefixRules)
	group.Post("/prefixes", h.HandleCreatePrefixRule)
	group.Post("/prefixes/preview", h.HandlePreviewPrefixes)
	group.Get("/prefixes/:id", h.HandleGetPrefixRule)
	group.Put("/prefixes/:id", h.HandleUpdatePrefixRule)
	group.Delete("/prefixes/:id", h.HandleDeletePrefixRule)

	group.Get("/export", h.HandleExport)
	group.Post("/import", h.HandleImport)
}

// HandleListNameRules lists name rules in evaluation order.
// @Summary List Name Rules
// @Tags rules
// @Produce json
// @Success 200 {array} rules.NameRule
// @Router /rules/names [get]
func (h *Handler) HandleListNameRules(c *fiber.Ctx) error {
	list, err := h.repo.ListNameRules(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// HandleGetNameRule returns one name rule.
// @Summary Get Name Rule
// @Tags rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} rules.NameRule
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/names/{id} [get]
func (h *Handler) HandleGetNameRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rule, err := h.repo.GetNameRule(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rule)
}

// HandleCreateNameRule stores a new name rule.
// @Summary Create Name Rule
// @Description Creates a site naming rule. The pattern must compile.
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body rules.NameRule true "Name rule"
// @Success 201 {object} rules.NameRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Router /rules/names [post]
func (h *Handler) HandleCreateNameRule(c *fiber.Ctx) error {
	var rule rules.NameRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	rule.ID = 0
	if err := h.repo.SaveNameRule(c.Context(), &rule); err != nil {
		return fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Name rule created", zap.String("rule", rule.Name))
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// HandleUpdateNameRule replaces a name rule.
// @Summary Update Name Rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param rule body rules.NameRule true "Name rule"
// @Success 200 {object} rules.NameRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/names/{id} [put]
func (h *Handler) HandleUpdateNameRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var rule rules.NameRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.ReplaceNameRule(c.Context(), id, &rule); err != nil {
		return fail(c, err)
	}
	return c.JSON(rule)
}

// HandleDeleteNameRule removes a name rule.
// @Summary Delete Name Rule
// @Tags rules
// @Param id path int true "Rule ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/names/{id} [delete]
func (h *Handler) HandleDeleteNameRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.repo.DeleteNameRule(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NamePreviewRequest is the body of a name preview.
type NamePreviewRequest struct {
	Networks []string        `json:"networks"`
	Rule     *rules.NameRule `json:"rule,omitempty"`
}

// HandlePreviewNames resolves sample network names.
// @Summary Preview Name Rules
// @Description Resolves sample network names with the stored rules, or with a single candidate rule when one is given.
// @Tags rules
// @Accept json
// @Produce json
// @Param request body NamePreviewRequest true "Sample names"
// @Success 200 {array} rules.PreviewResult
// @Failure 400 {object} map[string]string "Invalid rule"
// @Router /rules/names/preview [post]
func (h *Handler) HandlePreviewNames(c *fiber.Ctx) error {
	var req NamePreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	results, err := h.service.PreviewNames(c.Context(), req.Networks, req.Rule)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(results)
}

// HandleListPrefixRules lists prefix filter rules in evaluation order.
// @Summary List Prefix Filter Rules
// @Tags rules
// @Produce json
// @Success 200 {array} rules.PrefixFilterRule
// @Router /rules/prefixes [get]
func (h *Handler) HandleListPrefixRules(c *fiber.Ctx) error {
	list, err := h.repo.ListPrefixRules(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// HandleGetPrefixRule returns one prefix filter rule.
// @Summary Get Prefix Filter Rule
// @Tags rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} rules.PrefixFilterRule
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/prefixes/{id} [get]
func (h *Handler) HandleGetPrefixRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rule, err := h.repo.GetPrefixRule(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rule)
}

// HandleCreatePrefixRule stores a new prefix filter rule.
// @Summary Create Prefix Filter Rule
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body rules.PrefixFilterRule true "Prefix filter rule"
// @Success 201 {object} rules.PrefixFilterRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Router /rules/prefixes [post]
func (h *Handler) HandleCreatePrefixRule(c *fiber.Ctx) error {
	var rule rules.PrefixFilterRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	rule.ID = 0
	if err := h.repo.SavePrefixRule(c.Context(), &rule); err != nil {
		return fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Info("Prefix filter rule created", zap.String("rule", rule.Name))
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// HandleUpdatePrefixRule replaces a prefix filter rule.
// @Summary Update Prefix Filter Rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param rule body rules.PrefixFilterRule true "Prefix filter rule"
// @Success 200 {object} rules.PrefixFilterRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/prefixes/{id} [put]
func (h *Handler) HandleUpdatePrefixRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var rule rules.PrefixFilterRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.ReplacePrefixRule(c.Context(), id, &rule); err != nil {
		return fail(c, err)
	}
	return c.JSON(rule)
}

// HandleDeletePrefixRule removes a prefix filter rule.
// @Summary Delete Prefix Filter Rule
// @Tags rules
// @Param id path int true "Rule ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not Found"
// @Router /rules/prefixes/{id} [delete]
func (h *Handler) HandleDeletePrefixRule(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.repo.DeletePrefixRule(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PrefixPreviewRequest is the body of a prefix preview.
type PrefixPreviewRequest struct {
	Prefixes []string `json:"prefixes"`
}

// HandlePreviewPrefixes evaluates sample prefixes against the stored filters.
// @Summary Preview Prefix Filters
// @Tags rules
// @Accept json
// @Produce json
// @Param request body PrefixPreviewRequest true "Sample prefixes"
// @Success 200 {array} PrefixPreview
// @Router /rules/prefixes/preview [post]
func (h *Handler) HandlePreviewPrefixes(c *fiber.Ctx) error {
	var req PrefixPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	results, err := h.service.PreviewPrefixes(c.Context(), req.Prefixes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(results)
}

// HandleExport returns every stored rule.
// @Summary Export Rules
// @Tags rules
// @Produce json
// @Produce application/x-yaml
// @Param format query string false "json (default) or yaml"
// @Success 200 {object} rules.Document
// @Router /rules/export [get]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	doc, err := h.service.Export(c.Context())
	if err != nil {
		return fail(c, err)
	}
	if strings.EqualFold(c.Query("format"), "yaml") {
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/x-yaml")
		return c.Send(out)
	}
	return c.JSON(doc)
}

// HandleImport upserts rules from a JSON or YAML document.
// @Summary Import Rules
// @Description Validates every rule, then upserts them by name in one transaction. YAML is accepted with a yaml content type.
// @Tags rules
// @Accept json
// @Accept application/x-yaml
// @Produce json
// @Param document body rules.Document true "Rule document"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string "Invalid rule"
// @Router /rules/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var doc rules.Document
	var err error
	if strings.Contains(string(c.Request().Header.ContentType()), "yaml") {
		err = yaml.Unmarshal(c.Body(), &doc)
	} else {
		err = c.BodyParser(&doc)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid rule document: " + err.Error()})
	}

	if err := h.service.Import(c.Context(), doc); err != nil {
		l.Warn("Rule import rejected", zap.Error(err))
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"name_rules": len(doc.NameRules), "prefix_rules": len(doc.PrefixRules)})
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, rules.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, rules.ErrInvalidRule):
		status = fiber.StatusBadRequest
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
