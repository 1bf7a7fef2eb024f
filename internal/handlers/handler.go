package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	forecastService *services.ForecastService
}

// New creates a new handler instance
func New(logger *logging.Logger, forecastService *services.ForecastService) *Handler {
	return &Handler{
		logger:          logger,
		forecastService: forecastService,
	}
}

// sessionContext tags the request context with the :id route param so
// service logs carry the session id
func sessionContext(c *fiber.Ctx) (context.Context, string) {
	id := c.Params("id")
	return logging.WithSessionID(c.UserContext(), id), id
}

// statusForCode maps service error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case services.CodeSessionNotFound:
		return fiber.StatusNotFound
	case services.CodeInvalidInput, services.CodeInvalidTarget:
		return fiber.StatusBadRequest
	case services.CodeNotTrained:
		return fiber.StatusConflict
	case services.CodeTrainingFailed, services.CodePredictionFailed:
		return fiber.StatusUnprocessableEntity
	case services.CodeCapabilityUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders service errors with their code; anything else is
// handed to the app's error handler
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return err
	}

	status := statusForCode(svcErr.Code)
	if status >= fiber.StatusInternalServerError {
		h.logger.WithContext(c.UserContext()).Error("Request failed",
			"path", c.Path(),
			"code", svcErr.Code,
			"error", svcErr.Message)
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Details: svcErr.Details,
		},
	})
}

// badRequest renders a request validation failure
func badRequest(c *fiber.Ctx, code, message string, details map[string]interface{}) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
