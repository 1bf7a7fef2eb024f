package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tabcast/internal/models"
)

// Features returns the engineered feature matrix
// GET /v1/sessions/:id/features?target=
func (h *Handler) Features(c *fiber.Ctx) error {
	ctx, id := sessionContext(c)
	resp, err := h.forecastService.Features(ctx, id, c.Query("target"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// Train fits a model on the session's rows
// POST /v1/sessions/:id/train
func (h *Handler) Train(c *fiber.Ctx) error {
	var req models.TrainRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", map[string]interface{}{"error": err.Error()})
		}
	}
	req.Normalize()

	ctx, id := sessionContext(c)
	resp, err := h.forecastService.Train(ctx, id, req.Target)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// Forecast returns the one-step-ahead forecast
// GET /v1/sessions/:id/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	ctx, id := sessionContext(c)
	resp, err := h.forecastService.Predict(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}
