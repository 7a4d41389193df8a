package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursehub/api-gateway/internal/catalog"
	"coursehub/api-gateway/utils"
)

// EventRequest defines the request body for creating a standalone event.
// Schedule fields are required: a real event never carries template sentinels.
type EventRequest struct {
	TemplateRequest
	Dates          string `json:"dates" validate:"required"`
	Location       string `json:"location" validate:"required"`
	Instructor     string `json:"instructor" validate:"required"`
	SpotsAvailable int    `json:"spots_available" validate:"gte=0"`
	Status         string `json:"status" validate:"required,oneof=draft published"`
}

// InstantiateRequest defines the request body for instantiating a template.
type InstantiateRequest struct {
	Dates          string `json:"dates" validate:"required"`
	Location       string `json:"location" validate:"required"`
	Instructor     string `json:"instructor" validate:"required"`
	SpotsAvailable int    `json:"spots_available" validate:"gte=0"`
	Status         string `json:"status" validate:"required,oneof=draft published"`
}

// CreateEvent handles POST /events — a standalone event with no template.
func (h *ApplicationHandler) CreateEvent(c *fiber.Ctx) error {
	req := new(EventRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse event JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	ev := templateContent(&req.TemplateRequest)
	ev.Dates = req.Dates
	ev.Location = req.Location
	ev.Instructor = req.Instructor
	ev.SpotsAvailable = req.SpotsAvailable
	ev.Status = req.Status

	created, err := h.Instances.Create(h.requestContext(c), ev)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, created)
}

// ListEvents handles GET /events, optionally filtered by template:
// GET /events?template_id=<uuid>.
func (h *ApplicationHandler) ListEvents(c *fiber.Ctx) error {
	var templateID *uuid.UUID
	if raw := c.Query("template_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template_id filter")
		}
		templateID = &id
	}

	events, err := h.Instances.List(h.requestContext(c), templateID)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, events)
}

// GetEvent handles GET /events/:id.
func (h *ApplicationHandler) GetEvent(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid event id")
	}
	ev, err := h.Instances.Get(h.requestContext(c), id)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, ev)
}

// UpdateEvent handles PATCH /events/:id.
func (h *ApplicationHandler) UpdateEvent(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid event id")
	}

	var patch map[string]interface{}
	if err := c.BodyParser(&patch); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	updated, err := h.Instances.Update(h.requestContext(c), id, patch)
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, updated)
}

// DeleteEvent handles DELETE /events/:id.
func (h *ApplicationHandler) DeleteEvent(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid event id")
	}
	if err := h.Instances.Delete(h.requestContext(c), id); err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// InstantiateTemplate handles POST /templates/:id/instantiate.
func (h *ApplicationHandler) InstantiateTemplate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid template id")
	}

	req := new(InstantiateRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse overrides JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	created, err := h.Instantiator.Instantiate(h.requestContext(c), id, catalog.ScheduleOverrides{
		Dates:          req.Dates,
		Location:       req.Location,
		Instructor:     req.Instructor,
		SpotsAvailable: req.SpotsAvailable,
		Status:         req.Status,
	})
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, created)
}
