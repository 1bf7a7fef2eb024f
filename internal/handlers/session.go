package handlers

import (
	"bytes"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/table"
	"github.com/soltixdb/tabcast/internal/utils"
)

// CreateSession uploads a table and opens a forecast session.
// POST /v1/sessions
//
// Accepts a multipart form with a "file" field (format taken from the file
// extension unless ?format= is set) or a raw body with ?format=csv|xlsx.
func (h *Handler) CreateSession(c *fiber.Ctx) error {
	name := c.Query("name")
	formatName := c.Query("format")

	var (
		reader io.Reader
		format table.Format
		err    error
	)

	if fh, ferr := c.FormFile("file"); ferr == nil {
		if formatName != "" {
			format, err = table.ParseFormat(formatName)
		} else {
			format, err = table.FormatFromFilename(fh.Filename)
		}
		if err != nil {
			return badRequest(c, "INVALID_FORMAT", err.Error(), map[string]interface{}{"filename": fh.Filename})
		}

		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "INVALID_UPLOAD", "Failed to open uploaded file", map[string]interface{}{"error": err.Error()})
		}
		defer func() { _ = f.Close() }()
		reader = f

		if name == "" {
			name = c.FormValue("name")
		}
		if name == "" {
			name = strings.TrimSuffix(fh.Filename, "."+string(format))
		}
	} else {
		if formatName == "" {
			formatName = string(table.FormatCSV)
		}
		format, err = table.ParseFormat(formatName)
		if err != nil {
			return badRequest(c, "INVALID_FORMAT", err.Error(), nil)
		}
		if len(c.Body()) == 0 {
			return badRequest(c, "INVALID_REQUEST", "Request body is empty; send a table or a multipart 'file' field", nil)
		}
		reader = bytes.NewReader(c.Body())
	}

	resp, err := h.forecastService.CreateSession(c.UserContext(), name, format, reader)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListSessions lists all sessions
// GET /v1/sessions
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	return c.JSON(h.forecastService.ListSessions(c.UserContext()))
}

// GetSession returns one session
// GET /v1/sessions/:id
func (h *Handler) GetSession(c *fiber.Ctx) error {
	ctx, id := sessionContext(c)
	resp, err := h.forecastService.GetSession(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}

// DeleteSession deletes a session
// DELETE /v1/sessions/:id
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	ctx, id := sessionContext(c)
	if err := h.forecastService.DeleteSession(ctx, id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AppendRows appends observed rows to a session
// POST /v1/sessions/:id/rows
func (h *Handler) AppendRows(c *fiber.Ctx) error {
	var req models.AppendRowsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", map[string]interface{}{"error": err.Error()})
	}

	if err := req.Validate(utils.MaxAppendRows); err != nil {
		return err
	}

	ctx, id := sessionContext(c)
	resp, err := h.forecastService.AppendRows(ctx, id, req.Rows)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(resp)
}
