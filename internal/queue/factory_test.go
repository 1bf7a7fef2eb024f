package queue

import (
	"context"
	"testing"

	"github.com/soltixdb/tabcast/internal/config"
)

func TestNewQueue_Memory(t *testing.T) {
	for _, typ := range []string{"", "memory", "MEMORY"} {
		q, err := NewQueue(config.QueueConfig{Type: typ})
		if err != nil {
			t.Fatalf("NewQueue(%q) failed: %v", typ, err)
		}
		if _, ok := q.(*MemoryQueue); !ok {
			t.Errorf("NewQueue(%q) returned %T, want *MemoryQueue", typ, q)
		}
		_ = q.Close()
	}
}

func TestNewQueue_None(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "none"})
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	if _, ok := q.(nopQueue); !ok {
		t.Fatalf("Expected nopQueue, got %T", q)
	}
	if err := q.Publish(context.Background(), "s", []byte("x")); err != nil {
		t.Errorf("nop Publish returned %v", err)
	}
}

func TestNewQueue_Unsupported(t *testing.T) {
	if _, err := NewQueue(config.QueueConfig{Type: "rabbitmq"}); err == nil {
		t.Error("Expected error for unsupported queue type")
	}
}

func TestNewQueue_KafkaWithoutBrokers(t *testing.T) {
	if _, err := NewQueue(config.QueueConfig{Type: "kafka"}); err == nil {
		t.Error("Expected error when kafka brokers are missing")
	}
}

func TestNewQueue_NATSUnreachable(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "nats", URL: "nats://127.0.0.1:1"})
	if err == nil {
		_ = q.Close()
		t.Error("Expected error for unreachable NATS server")
	}
}

func TestNewPublisherAndSubscriber(t *testing.T) {
	cfg := config.QueueConfig{Type: "memory"}

	pub, err := NewPublisher(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_ = pub.Close()

	sub, err := NewSubscriber(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_ = sub.Close()
}

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"tabcast", "model.trained", "tabcast.model.trained"},
		{"tabcast.", "forecast.predicted", "tabcast.forecast.predicted"},
		{"", "model.trained", "tabcast.model.trained"},
		{"acme.prod", "model.trained", "acme.prod.model.trained"},
	}
	for _, tt := range tests {
		if got := Subject(tt.prefix, tt.name); got != tt.want {
			t.Errorf("Subject(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("tabcast.model.trained"); got != "tabcast_model_trained" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeName("a-b_C9*>"); got != "a-b_C9__" {
		t.Errorf("got %q", got)
	}
}
