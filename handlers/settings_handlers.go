package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"coursehub/api-gateway/models"
	"coursehub/api-gateway/utils"
)

// SyncSettingsRequest defines the request body for updating the propagation
// policy.
type SyncSettingsRequest struct {
	SyncMode string `json:"sync_mode" validate:"required,oneof=always prompt never"`
}

// GetSyncSettings handles GET /settings/sync.
func (h *ApplicationHandler) GetSyncSettings(c *fiber.Ctx) error {
	mode, err := h.Policy.Get(h.requestContext(c))
	if err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"sync_mode": string(mode)})
}

// UpdateSyncSettings handles PUT /settings/sync.
func (h *ApplicationHandler) UpdateSyncSettings(c *fiber.Ctx) error {
	req := new(SyncSettingsRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse settings JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	if err := h.Policy.Set(h.requestContext(c), models.SyncMode(req.SyncMode)); err != nil {
		return utils.RespondWithError(c, statusForError(err), userMessage(err))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"sync_mode": req.SyncMode})
}
