package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/internal/catalog"
	"coursehub/api-gateway/internal/policy"
	"coursehub/api-gateway/models"
)

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Log          *logrus.Logger
	Templates    *catalog.TemplateRepository
	Instances    *catalog.InstanceRepository
	Instantiator *catalog.Instantiator
	Propagator   *catalog.Propagator
	Policy       *policy.Store
	Validate     *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(
	log *logrus.Logger,
	templates *catalog.TemplateRepository,
	instances *catalog.InstanceRepository,
	instantiator *catalog.Instantiator,
	propagator *catalog.Propagator,
	policyStore *policy.Store,
) *ApplicationHandler {
	return &ApplicationHandler{
		Log:          log,
		Templates:    templates,
		Instances:    instances,
		Instantiator: instantiator,
		Propagator:   propagator,
		Policy:       policyStore,
		Validate:     validator.New(),
	}
}

// requestContext carries the caller's bearer token into the engines.
func (h *ApplicationHandler) requestContext(c *fiber.Ctx) context.Context {
	token := c.Get(fiber.HeaderAuthorization)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer"))
	return auth.WithToken(c.UserContext(), token)
}

// statusForError maps the error taxonomy to HTTP status codes.
func statusForError(err error) int {
	var storeErr *models.StoreError
	switch {
	case errors.Is(err, models.ErrAuthRequired):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrAuthUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidSource),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrTemplateFlagMismatch):
		return fiber.StatusBadRequest
	case errors.As(err, &storeErr):
		if storeErr.Retryable() {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// userMessage turns taxonomy errors into actionable messages.
func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrAuthRequired):
		return "You are not logged in. Please log in again."
	case errors.Is(err, models.ErrPermissionDenied):
		return "You do not have permission to perform this action."
	case errors.Is(err, models.ErrAuthUnavailable):
		return "The authentication service is unavailable. Please try again shortly."
	case errors.Is(err, models.ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, models.ErrInvalidSource):
		return "The selected record is not a template and cannot be instantiated."
	default:
		return err.Error()
	}
}
