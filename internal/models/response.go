package models

import (
	"math"
	"time"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Version   string   `json:"version"`
	Boosters  []string `json:"boosters,omitempty"`
}

// SessionResponse represents forecast session metadata
type SessionResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Headers     []string `json:"headers"`
	DatetimeKey string   `json:"datetime_key,omitempty"`
	Target      string   `json:"target,omitempty"`
	Rows        int      `json:"rows"`
	State       string   `json:"state"`
	Trained     bool     `json:"trained"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// SessionListResponse represents list sessions response
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count"`
}

// AppendRowsResponse represents the result of appending rows
type AppendRowsResponse struct {
	Accepted int `json:"accepted"`
	Rows     int `json:"rows"`
}

// FeaturesResponse represents the engineered feature matrix of a session.
// Non-finite cells are encoded as null.
type FeaturesResponse struct {
	Target         string       `json:"target"`
	Exogenous      []string     `json:"exogenous"`
	FeatureNames   []string     `json:"feature_names"`
	Dimension      int          `json:"dimension"`
	X              [][]*float64 `json:"x"`
	Y              []*float64   `json:"y"`
	LastFeatureRow []*float64   `json:"last_feature_row"`
}

// MetricsResponse represents in-sample fit quality
type MetricsResponse struct {
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape"`
	DataPoints int     `json:"data_points"`
}

// TrainResponse represents the result of a training run
type TrainResponse struct {
	SessionID string                 `json:"session_id"`
	Target    string                 `json:"target"`
	Booster   string                 `json:"booster"`
	Config    map[string]interface{} `json:"config"`
	Rows      int                    `json:"rows"`
	Features  int                    `json:"features"`
	Metrics   MetricsResponse        `json:"metrics"`
	TookMs    int64                  `json:"took_ms"`
}

// ForecastResponse represents a one-step-ahead forecast. A non-finite model
// output leaves Forecast null and names the value in NonFinite.
type ForecastResponse struct {
	SessionID string   `json:"session_id"`
	Target    string   `json:"target"`
	Forecast  *float64 `json:"forecast"`
	NonFinite string   `json:"non_finite,omitempty"`
	Rows      int      `json:"rows"`
	CreatedAt string   `json:"created_at"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FormatTime renders timestamps the way every response does
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NullableFloat returns nil for NaN and infinities
func NullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NullableFloats maps NullableFloat over a slice
func NullableFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = NullableFloat(v)
	}
	return out
}

// NullableMatrix maps NullableFloat over every row
func NullableMatrix(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, r := range rows {
		out[i] = NullableFloats(r)
	}
	return out
}

// NonFiniteLabel names a non-finite value ("NaN", "+Inf", "-Inf"), or "" if finite
func NonFiniteLabel(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return ""
	}
}
