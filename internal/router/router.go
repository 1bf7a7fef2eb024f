package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/tabcast/internal/config"
	"github.com/soltixdb/tabcast/internal/handlers"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/middleware"
	"github.com/soltixdb/tabcast/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, forecastService *services.ForecastService, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, forecastService)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	// Session Routes
	v1.Post("/sessions", h.CreateSession)
	v1.Get("/sessions", h.ListSessions)
	v1.Get("/sessions/:id", h.GetSession)
	v1.Delete("/sessions/:id", h.DeleteSession)
	v1.Post("/sessions/:id/rows", h.AppendRows)

	// Forecast Routes
	v1.Get("/sessions/:id/features", h.Features)
	v1.Post("/sessions/:id/train", h.Train)
	v1.Get("/sessions/:id/forecast", h.Forecast)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, forecastService *services.ForecastService, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Tabcast Forecaster",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimitBytes(),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, forecastService, cfg)

	return app
}
