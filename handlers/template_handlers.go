package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursehub/api-gateway/internal/catalog"
	"coursehub/api-gateway/models"
	"coursehub/api-gateway/utils"
)

// TemplateRequest defines the expected request body for creating a template.
// Only content fields are accepted; schedule fields are backfilled with
// sentinels by the repository.
type TemplateRequest struct {
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Price            string   `json:"price"`
	EventType        string   `json:"event_type"`
	LearningOutcomes []string `json:"learning_outcomes"`
	Prerequisites    string   `json:"prerequisites"`
	TargetAudience   string   `json:"target_audience"`
	Duration         string   `json:"duration"`
	SkillLevel       string   `json:"skill_level"`
	Format           string   `json:"format"`
	ImageURL         string   `json:"image_url"`
	ImageAspectRatio string   `json:"image_aspect_ratio"`
	ImageSize        string   `json:"image_size"`
	ImageLayout      string   `json:"image_layout"`
}

// PropagationStatus reports what happened (or should happen next) with
// propagation after a template save.
type PropagationStatus struct {
	Mode    string                     `json:"mode"`
	Status  string                     `json:"status"` // applied | partial | confirmation_required | skipped | failed
	Result  *catalog.PropagationResult `json:"result,omitempty"`
	Summary string                     `json:"summary,omitempty"`
}

// CreateTemplate handles POST /templates.
func (h *ApplicationHandler) CreateTemplate(c *fiber.Ctx) error {
	req := new(TemplateRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse template JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	created, err := h.Templates.Create(h.requestContext(c), templateContent(req))
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, created)
}

// ListTemplates handles GET /templates.
func (h *ApplicationHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.Templates.List(h.requestContext(c))
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, templates)
}

// GetTemplate handles GET /templates/:id.
func (h *ApplicationHandler) GetTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template id")
	}
	tpl, err := h.Templates.Get(h.requestContext(c), id)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, tpl)
}

// UpdateTemplate handles PATCH /templates/:id. The template is saved first;
// propagation is a separate subsequent step driven by the sync policy:
// "always" runs it immediately, "prompt" reports that confirmation is needed
// (the caller then hits the propagate endpoint), "never" skips it.
func (h *ApplicationHandler) UpdateTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template id")
	}

	var patch map[string]interface{}
	if err := c.BodyParser(&patch); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	ctx := h.requestContext(c)
	updated, err := h.Templates.Update(ctx, id, patch)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}

	mode, err := h.Policy.Get(ctx)
	if err != nil {
		h.Log.WithField("error", err.Error()).Warn("Could not read sync policy, defaulting to prompt")
		mode = models.DefaultSyncMode
	}

	status := PropagationStatus{Mode: string(mode)}
	switch mode {
	case models.SyncAlways:
		status = h.runPropagation(c, id, updated)
		status.Mode = string(mode)
	case models.SyncNever:
		status.Status = "skipped"
	default:
		status.Status = "confirmation_required"
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"template":    updated,
		"propagation": status,
	})
}

// PropagateTemplate handles POST /templates/:id/propagate — the explicit
// propagation request, used after a "prompt" confirmation.
func (h *ApplicationHandler) PropagateTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template id")
	}

	ctx := h.requestContext(c)
	tpl, err := h.Templates.Get(ctx, id)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}

	status := h.runPropagation(c, id, tpl)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"propagation": status,
	})
}

// DeleteTemplate handles DELETE /templates/:id. Derived instances are not
// cascaded; the response reports how many were orphaned.
func (h *ApplicationHandler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template id")
	}

	orphaned, err := h.Templates.Delete(h.requestContext(c), id)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"deleted":            true,
		"orphaned_instances": orphaned,
	})
}

func (h *ApplicationHandler) runPropagation(c *fiber.Ctx, id uuid.UUID, tpl models.CalendarEvent) PropagationStatus {
	result, err := h.Propagator.Propagate(h.requestContext(c), id, tpl)
	if err != nil {
		var partial *models.PartialPropagationError
		if errors.As(err, &partial) {
			return PropagationStatus{
				Status: "partial",
				Result: &result,
				Summary: fmt.Sprintf("%d updated, %d failed",
					partial.Updated, len(partial.FailedIDs)),
			}
		}
		return PropagationStatus{
			Status:  "failed",
			Summary: userMessage(err),
		}
	}
	return PropagationStatus{
		Status:  "applied",
		Result:  &result,
		Summary: fmt.Sprintf("%d updated, 0 failed", result.UpdatedCount),
	}
}

func templateContent(req *TemplateRequest) models.CalendarEvent {
	return models.CalendarEvent{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Price:            req.Price,
		EventType:        req.EventType,
		LearningOutcomes: req.LearningOutcomes,
		Prerequisites:    req.Prerequisites,
		TargetAudience:   req.TargetAudience,
		Duration:         req.Duration,
		SkillLevel:       req.SkillLevel,
		Format:           req.Format,
		ImageURL:         req.ImageURL,
		ImageAspectRatio: req.ImageAspectRatio,
		ImageSize:        req.ImageSize,
		ImageLayout:      req.ImageLayout,
	}
}
