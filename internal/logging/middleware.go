package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MiddlewareConfig defines configuration for logging middleware
type MiddlewareConfig struct {
	// SkipPaths defines paths to skip logging
	SkipPaths []string
}

// DefaultMiddlewareConfig skips the health probe
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		SkipPaths: []string{"/health"},
	}
}

// FiberMiddleware returns a Fiber middleware for request logging
func FiberMiddleware(logger *Logger) fiber.Handler {
	return FiberMiddlewareWithConfig(logger, DefaultMiddlewareConfig())
}

// FiberMiddlewareWithConfig tags every request with an X-Request-ID, stores
// the logger in the user context and logs the outcome by status class.
func FiberMiddlewareWithConfig(logger *Logger, cfg MiddlewareConfig) fiber.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("X-Request-ID", requestID)

		ctx := c.UserContext()
		ctx = WithRequestID(ctx, requestID)
		ctx = WithLogger(ctx, logger)
		c.SetUserContext(ctx)

		if skip[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		k1, v1 := String("method", c.Method())
		k2, v2 := String("path", c.Path())
		k3, v3 := String("ip", c.IP())
		k4, v4 := Int("status", statusCode)
		k5, v5 := Duration("duration", duration)
		k6, v6 := String("request_id", requestID)

		fields := []interface{}{k1, v1, k2, v2, k3, v3, k4, v4, k5, v5, k6, v6}

		if err != nil {
			kErr, vErr := Err(err)
			fields = append(fields, kErr, vErr)
			logger.Error("Request failed", fields...)
			return err
		}

		if statusCode >= 500 {
			logger.Error("Server error", fields...)
		} else if statusCode >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request completed", fields...)
		}

		return nil
	}
}
