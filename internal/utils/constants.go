package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// TrainTimeout bounds a single fit call issued from the HTTP layer
	TrainTimeout = 2 * time.Minute

	// EventPublishTimeout is the timeout for publishing a forecast event
	EventPublishTimeout = 5 * time.Second

	// ShutdownTimeout is the graceful shutdown window for the HTTP server
	ShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Upload Constants
// =============================================================================

const (
	// DefaultBodyLimitMB is the default maximum upload size in MB
	DefaultBodyLimitMB = 32

	// MaxAppendRows is the maximum number of rows accepted by a single append call
	MaxAppendRows = 10000
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"

	// QueueTypeNone disables event publishing
	QueueTypeNone QueueType = "none"
)

// =============================================================================
// Event Subjects
// =============================================================================

const (
	// DefaultSubjectPrefix prefixes every event subject
	DefaultSubjectPrefix = "tabcast"

	// SubjectModelTrained is published after a successful fit
	SubjectModelTrained = "model.trained"

	// SubjectForecastPredicted is published after a successful one-step forecast
	SubjectForecastPredicted = "forecast.predicted"
)
