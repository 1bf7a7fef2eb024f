package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/services"
)

func TestHandler_Health(t *testing.T) {
	logger := logging.NewNop()
	handler := New(logger, services.NewForecastService(logger, services.ForecastServiceConfig{}))

	app := fiber.New()
	app.Get("/health", handler.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status %d, got %d", fiber.StatusOK, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	var healthResp models.HealthResponse
	if err := json.Unmarshal(body, &healthResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if healthResp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", healthResp.Status)
	}
	if healthResp.Version != Version {
		t.Errorf("Expected version '%s', got '%s'", Version, healthResp.Version)
	}
	if healthResp.Timestamp == "" {
		t.Error("Expected non-empty timestamp")
	}
	if len(healthResp.Boosters) < 2 {
		t.Errorf("Expected registered boosters, got %v", healthResp.Boosters)
	}
}

func TestHandler_NotFound(t *testing.T) {
	handler := &Handler{logger: logging.NewNop()}

	app := fiber.New()
	app.Use(handler.NotFound)

	resp, err := app.Test(httptest.NewRequest("GET", "/nonexistent", nil))
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status %d, got %d", fiber.StatusNotFound, resp.StatusCode)
	}

	var errResp models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if errResp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected error code 'NOT_FOUND', got '%s'", errResp.Error.Code)
	}
	if errResp.Error.Path != "/nonexistent" {
		t.Errorf("Expected path '/nonexistent', got '%s'", errResp.Error.Path)
	}
}

func TestStatusForCode(t *testing.T) {
	tests := map[string]int{
		services.CodeSessionNotFound:       fiber.StatusNotFound,
		services.CodeInvalidInput:          fiber.StatusBadRequest,
		services.CodeInvalidTarget:         fiber.StatusBadRequest,
		services.CodeNotTrained:            fiber.StatusConflict,
		services.CodeTrainingFailed:        fiber.StatusUnprocessableEntity,
		services.CodePredictionFailed:      fiber.StatusUnprocessableEntity,
		services.CodeCapabilityUnavailable: fiber.StatusServiceUnavailable,
		services.CodeStorageFailed:         fiber.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusForCode(code); got != want {
			t.Errorf("statusForCode(%s) = %d, want %d", code, got, want)
		}
	}
}
