package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisMaxLen caps each event stream (approximate trimming)
const redisMaxLen = 10000

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379) or host:port
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream key prefix (default: "tabcast")
	Group    string // Consumer group name (default: "tabcast-group")
	Consumer string // Consumer name (default: hostname)
}

// RedisQueue implements Queue using Redis Streams and consumer groups
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// newRedisQueue connects and pings the server
func newRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "tabcast"
	}
	if cfg.Group == "" {
		cfg.Group = "tabcast-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamKey converts a subject to a Redis stream key
func (q *RedisQueue) streamKey(subject string) string {
	return q.config.Stream + ":" + subject
}

// Publish appends the message to the subject's stream
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamKey(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: redisMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// Subscribe joins the consumer group and reads in the background. Messages
// whose handler fails are left pending for redelivery.
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamKey(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	q.subscriptions[subject] = cancel
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(ctx, stream, handler)
	}()
	return nil
}

func (q *RedisQueue) readStream(ctx context.Context, stream string, handler MessageHandler) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					q.client.XAck(ctx, stream, q.config.Group, msg.ID)
					continue
				}
				if err := handler([]byte(data)); err != nil {
					continue
				}
				q.client.XAck(ctx, stream, q.config.Group, msg.ID)
			}
		}
	}
}

// Unsubscribe stops reading a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
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

// Close stops all readers and closes the client
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
