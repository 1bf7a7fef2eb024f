package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file, with TABCAST_* environment overrides
// (e.g. TABCAST_SERVER_HTTP_PORT, TABCAST_MODEL_BOOSTER).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tabcast")
	}

	setDefaults(v)

	v.SetEnvPrefix("TABCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults mirrors DefaultConfig so that env-only deployments work
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit_mb", d.Server.BodyLimitMB)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_keys", d.Auth.APIKeys)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)

	v.SetDefault("features.max_lag", d.Features.MaxLag)
	v.SetDefault("features.rolling_window", d.Features.RollingWindow)

	v.SetDefault("model.booster", d.Model.Booster)
	v.SetDefault("model.train_timeout", d.Model.TrainTimeout)

	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.compression", d.Storage.Compression)
	v.SetDefault("storage.persist", d.Storage.Persist)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.subject_prefix", d.Queue.SubjectPrefix)
	v.SetDefault("queue.redis_db", d.Queue.RedisDB)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			BodyLimitMB:  32,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Auth: AuthConfig{
			Enabled: false,
			APIKeys: []string{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
		Features: FeaturesConfig{
			MaxLag:        3,
			RollingWindow: 7,
		},
		Model: ModelConfig{
			Booster:      "gbtree",
			TrainTimeout: 2 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			Compression: "snappy",
			Persist:     true,
		},
		Queue: QueueConfig{
			Type:          "memory",
			URL:           "nats://localhost:4222",
			SubjectPrefix: "tabcast",
			RedisStream:   "tabcast",
			RedisGroup:    "tabcast-group",
			KafkaGroupID:  "tabcast-group",
		},
	}
}
