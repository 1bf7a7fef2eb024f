package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Features FeaturesConfig `mapstructure:"features"`
	Model    ModelConfig    `mapstructure:"model"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"`     // HTTP server port
	BodyLimitMB  int           `mapstructure:"body_limit_mb"` // Max upload size in MB
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// FeaturesConfig controls the engineered feature layout
type FeaturesConfig struct {
	MaxLag        int `mapstructure:"max_lag"`        // Lags 1..MaxLag per exogenous column (default: 3)
	RollingWindow int `mapstructure:"rolling_window"` // Rolling mean window (default: 7)
}

// ModelConfig selects the regressor used for training
type ModelConfig struct {
	Booster      string        `mapstructure:"booster"`       // gbtree (default) or gblinear
	TrainTimeout time.Duration `mapstructure:"train_timeout"` // Upper bound on a single fit
}

// StorageConfig represents session snapshot storage
type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	Compression string `mapstructure:"compression"` // snappy (default) or none
	Persist     bool   `mapstructure:"persist"`     // Write session snapshots to DataDir
}

// QueueConfig represents forecast event queue configuration
type QueueConfig struct {
	Type          string `mapstructure:"type"`           // Queue type: nats, redis, kafka, memory, none
	URL           string `mapstructure:"url"`            // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username      string `mapstructure:"username"`       // Optional authentication
	Password      string `mapstructure:"password"`       // Optional authentication
	SubjectPrefix string `mapstructure:"subject_prefix"` // Prefix for event subjects (default: "tabcast")

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "tabcast")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "tabcast-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimitMB < 1 {
		return fmt.Errorf("body_limit_mb must be positive")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// Validate validates feature configuration
func (c *FeaturesConfig) Validate() error {
	if c.MaxLag < 1 {
		return fmt.Errorf("features.max_lag must be at least 1")
	}

	if c.RollingWindow < 1 {
		return fmt.Errorf("features.rolling_window must be at least 1")
	}

	return nil
}

// Validate validates model configuration
func (c *ModelConfig) Validate() error {
	if c.Booster == "" {
		return fmt.Errorf("model.booster is required")
	}

	if c.TrainTimeout <= 0 {
		return fmt.Errorf("model.train_timeout must be positive")
	}

	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	if c.Persist && c.DataDir == "" {
		return fmt.Errorf("data_dir is required when persist is enabled")
	}

	if c.Compression != "none" && c.Compression != "snappy" {
		return fmt.Errorf("storage.compression must be 'none' or 'snappy'")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "none", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("queue.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("queue.kafka_brokers or queue.url is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory, none")
	}

	if c.SubjectPrefix == "" {
		return fmt.Errorf("queue.subject_prefix is required")
	}

	return nil
}
