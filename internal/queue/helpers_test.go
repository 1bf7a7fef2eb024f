package queue

import "github.com/nats-io/nats.go"

// Test-only wrappers around the unexported constructors.

func NewNATSQueue(url, prefix string) (*NATSQueue, error) {
	return newNATSQueue(url, "", "", prefix)
}

func NewNATSQueueWithConn(conn *nats.Conn, prefix string) (*NATSQueue, error) {
	return newNATSQueueWithConn(conn, prefix)
}

func NewRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	return newRedisQueue(cfg)
}

func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	return newKafkaQueue(cfg)
}
