package queue

import (
	"context"
	"fmt"
	"sync"
)

// memoryBuffer bounds the number of undelivered messages per subject
const memoryBuffer = 1024

// MemoryQueue implements Queue with buffered channels, one per subject.
// It is the default for single-process deployments and tests.
type MemoryQueue struct {
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	closed        bool
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewMemoryQueue creates an in-process queue. Messages never leave the process.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// channel returns the subject's channel, creating it on first use.
// Callers hold q.mu.
func (q *MemoryQueue) channel(subject string) chan []byte {
	if ch, ok := q.channels[subject]; ok {
		return ch
	}
	ch := make(chan []byte, memoryBuffer)
	q.channels[subject] = ch
	return ch
}

// Publish enqueues a copy of data without blocking
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.channel(subject) <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// Subscribe starts a goroutine feeding the subject's messages to handler.
// Handler errors drop the message.
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.channel(subject)
	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				_ = handler(data)
			}
		}
	}()

	return nil
}

// Unsubscribe stops delivery for a subject; pending messages stay queued
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all subscribers and waits for them to exit
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// PendingCount returns the number of undelivered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
