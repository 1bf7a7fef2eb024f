package models

// EventType identifies a forecast lifecycle event
type EventType string

const (
	EventModelTrained      EventType = "model.trained"
	EventForecastPredicted EventType = "forecast.predicted"
)

// ForecastEvent is published to the event queue after training and after
// each prediction. It is encoded as JSON.
type ForecastEvent struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id"`
	Target    string           `json:"target"`
	Booster   string           `json:"booster,omitempty"`
	Rows      int              `json:"rows"`
	Features  int              `json:"features,omitempty"`
	Forecast  *float64         `json:"forecast,omitempty"`
	NonFinite string           `json:"non_finite,omitempty"`
	Metrics   *MetricsResponse `json:"metrics,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
	Timestamp string           `json:"timestamp"`
}
