// Package services provides the business logic layer between HTTP handlers
// and the forecasting core. Services own session state, map core errors to
// coded service errors, and emit lifecycle events.
package services

import (
	"errors"

	"github.com/soltixdb/tabcast/internal/forecast"
)

// Error codes returned by the forecast service
const (
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidTarget         = "INVALID_TARGET"
	CodeNotTrained            = "NOT_TRAINED"
	CodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	CodeTrainingFailed        = "TRAINING_FAILED"
	CodePredictionFailed      = "PREDICTION_FAILED"
	CodeStorageFailed         = "STORAGE_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap exposes the core error behind the service error
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// wrapError attaches a code to a core error, keeping it reachable via errors.Is
func wrapError(code string, err error, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: err.Error(),
		Details: details,
		cause:   err,
	}
}

// trainingCode classifies a Forecaster.Train error. Capability failures are
// reported as such even though they also count as training failures.
func trainingCode(err error) string {
	switch {
	case errors.Is(err, forecast.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, forecast.ErrCapabilityUnavailable):
		return CodeCapabilityUnavailable
	default:
		return CodeTrainingFailed
	}
}

// predictionCode classifies a Forecaster.PredictNext error
func predictionCode(err error) string {
	if errors.Is(err, forecast.ErrInvalidInput) {
		return CodeInvalidInput
	}
	return CodePredictionFailed
}
