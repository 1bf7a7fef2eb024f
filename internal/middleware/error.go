package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
)

// ErrorHandler renders unhandled errors as the JSON error envelope.
// Fiber errors keep their status; anything else is a 500.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		log := logger.WithContext(c.UserContext())
		fields := []interface{}{"path", c.Path(), "method", c.Method(), "status", code, "error", err}
		if code >= fiber.StatusInternalServerError {
			log.Error("Request error", fields...)
		} else {
			log.Warn("Request rejected", fields...)
		}

		return c.Status(code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    errorCode(code),
				Message: message,
			},
		})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	default:
		if status >= fiber.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}
