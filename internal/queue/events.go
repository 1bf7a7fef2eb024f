package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/utils"
)

// EventPublisher encodes forecast events as JSON and publishes them under
// <prefix>.<event type>.
type EventPublisher struct {
	publisher Publisher
	prefix    string
	logger    *logging.Logger
}

// NewEventPublisher wraps a Publisher. A nil publisher discards events.
func NewEventPublisher(publisher Publisher, prefix string, logger *logging.Logger) *EventPublisher {
	if publisher == nil {
		publisher = nopQueue{}
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &EventPublisher{publisher: publisher, prefix: prefix, logger: logger}
}

// SubjectFor returns the subject an event type is published on
func (p *EventPublisher) SubjectFor(t models.EventType) string {
	return Subject(p.prefix, string(t))
}

// Publish sends one event, bounded by utils.EventPublishTimeout
func (p *EventPublisher) Publish(ctx context.Context, event models.ForecastEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.EventPublishTimeout)
	defer cancel()

	subject := p.SubjectFor(event.Type)
	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	p.logger.Debug("Published forecast event",
		"subject", subject,
		"session_id", event.SessionID,
		"bytes", len(data))
	return nil
}

// Close closes the underlying publisher
func (p *EventPublisher) Close() error {
	return p.publisher.Close()
}
