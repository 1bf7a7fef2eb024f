package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSQueue implements Queue using NATS JetStream. One stream captures every
// subject under the configured prefix, so events published before a consumer
// exists are retained.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	stream        string
	prefix        string
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// newNATSQueue connects and ensures the event stream exists
func newNATSQueue(url, username, password, prefix string) (*NATSQueue, error) {
	opts := []nats.Option{nats.Name("tabcast")}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, prefix)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection
func newNATSQueueWithConn(conn *nats.Conn, prefix string) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	q := &NATSQueue{
		conn:          conn,
		js:            js,
		stream:        "tabcast-" + sanitizeName(prefix),
		prefix:        prefix,
		subscriptions: make(map[string]*nats.Subscription),
	}
	if err := q.ensureStream(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *NATSQueue) ensureStream() error {
	_, err := q.js.StreamInfo(q.stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", q.stream, err)
	}

	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:     q.stream,
		Subjects: []string{q.prefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", q.stream, err)
	}
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer. Handler errors NAK the message so it
// is redelivered, up to three attempts.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.BindStream(q.stream),
		nats.Durable("consumer-"+sanitizeName(subject)),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// StreamName returns the JetStream stream backing this queue
func (q *NATSQueue) StreamName() string {
	return q.stream
}
