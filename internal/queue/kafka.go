package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string      // Kafka broker addresses
	GroupID       string        // Consumer group ID (default: "tabcast-group")
	MaxRetries    int           // Producer attempts per message (default: 3)
	CommitRetries int           // Consumer commit retries (default: 3)
	RetryBackoff  time.Duration // Backoff between commit retries (default: 100ms)
}

// KafkaQueue implements Queue using Apache Kafka. Subjects map to topics with
// dots replaced, since the event stream does not rely on topic hierarchies.
type KafkaQueue struct {
	config        KafkaConfig
	writer        *kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// newKafkaQueue creates a Kafka queue; no connection is made until first use
func newKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = "tabcast-group"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CommitRetries == 0 {
		cfg.CommitRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}

	// Topic is set per message so a single writer serves every subject.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            cfg.MaxRetries,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaQueue{
		config:        cfg,
		writer:        writer,
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// topic maps a subject to a Kafka topic name
func topic(subject string) string {
	return sanitizeName(subject)
}

// Publish writes one message to the subject's topic
func (q *KafkaQueue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := kafka.Message{
		Topic: topic(subject),
		Value: data,
		Time:  time.Now(),
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", msg.Topic, err)
	}
	return nil
}

// Subscribe consumes the subject's topic within the consumer group
func (q *KafkaQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  q.config.GroupID,
		Topic:    topic(subject),
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.readers[subject] = reader
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.consume(ctx, reader, handler)
	}()
	return nil
}

// consume commits only messages whose handler succeeded
func (q *KafkaQueue) consume(ctx context.Context, reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if err := handler(msg.Value); err != nil {
			continue
		}

		for i := 0; i < q.config.CommitRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
		}
	}
}

// Unsubscribe stops consuming a subject
func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}

	cancel()
	if reader, ok := q.readers[subject]; ok {
		_ = reader.Close()
		delete(q.readers, subject)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all consumers and flushes the writer
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	var lastErr error
	for subject, cancel := range q.subscriptions {
		cancel()
		if reader, ok := q.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(q.subscriptions, subject)
		delete(q.readers, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	if err := q.writer.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}

// Stats returns producer stats
func (q *KafkaQueue) Stats() kafka.WriterStats {
	return q.writer.Stats()
}
