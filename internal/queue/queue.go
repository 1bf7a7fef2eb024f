// Package queue carries forecast lifecycle events to external consumers over
// NATS JetStream, Redis Streams, Kafka or an in-process channel.
package queue

import (
	"context"
	"strings"

	"github.com/soltixdb/tabcast/internal/utils"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// Subject joins the configured prefix and an event name, e.g.
// Subject("tabcast", "model.trained") = "tabcast.model.trained".
func Subject(prefix, name string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = utils.DefaultSubjectPrefix
	}
	return prefix + "." + name
}

// sanitizeName replaces characters not allowed in stream, consumer and topic
// names. Only A-Z, a-z, 0-9, dash and underscore are kept.
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
