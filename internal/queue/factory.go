package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/tabcast/internal/config"
	"github.com/soltixdb/tabcast/internal/utils"
)

// NewQueue creates a new Queue instance based on configuration.
// An empty type selects the in-memory queue.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeMemory
	}

	prefix := strings.Trim(cfg.SubjectPrefix, ".")
	if prefix == "" {
		prefix = utils.DefaultSubjectPrefix
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return newNATSQueue(cfg.URL, cfg.Username, cfg.Password, prefix)

	case utils.QueueTypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		})

	case utils.QueueTypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		})

	case utils.QueueTypeMemory:
		return NewMemoryQueue(), nil

	case utils.QueueTypeNone:
		return nopQueue{}, nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory, none)", queueType)
	}
}

// NewPublisher creates a Publisher when only publishing is needed
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	return NewQueue(cfg)
}

// NewSubscriber creates a Subscriber when only consuming is needed
func NewSubscriber(cfg config.QueueConfig) (Subscriber, error) {
	return NewQueue(cfg)
}
