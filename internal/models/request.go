package models

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AppendRowsRequest represents rows appended to an existing session
type AppendRowsRequest struct {
	Rows []map[string]interface{} `json:"rows" validate:"required,min=1"`
}

// Validate validates the append request against the per-request row limit
func (r *AppendRowsRequest) Validate(maxRows int) error {
	if len(r.Rows) == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "'rows' must contain at least one row",
		}
	}

	if maxRows > 0 && len(r.Rows) > maxRows {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("too many rows: %d (max %d)", len(r.Rows), maxRows),
		}
	}

	return nil
}

// TrainRequest represents a training request. An empty target means the
// session's stored target, or the first non-datetime column.
type TrainRequest struct {
	Target string `json:"target,omitempty"`
}

// Normalize trims the target name
func (r *TrainRequest) Normalize() {
	r.Target = strings.TrimSpace(r.Target)
}
