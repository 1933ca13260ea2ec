package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cravepulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers            []string `yaml:"brokers"`
		ReadingsTopic      string   `yaml:"readings_topic" default:"wearable.readings"`
		NotificationsTopic string   `yaml:"notifications_topic" default:"craving.notifications"`
		AlertsTopic        string   `yaml:"alerts_topic" default:"craving.ops.alerts"`
		Compression        string   `yaml:"compression" default:"gzip"`
		RequiredAcks       int      `yaml:"required_acks" default:"-1"`
		Consumer           struct {
			GroupID    string        `yaml:"group_id" default:"cravepulse-ingest"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"4"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"60s"`
	} `yaml:"queue"`
	Model struct {
		Path string `yaml:"path" default:"models/craving_forest.json"`
	} `yaml:"model"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// PipelineConfig is the configuration surface recognized by the prediction
// core. Defaults mirror the documented policy: 5-minute windows, at least 10
// readings per window, a 0.5 classification cutoff, a 0.7 notification
// cutoff, and 70 bpm substituted when a window carries no heart-rate samples.
type PipelineConfig struct {
	Window                  time.Duration `yaml:"window" default:"5m"`
	MinReadings             int           `yaml:"min_readings" default:"10"`
	ClassificationThreshold float64       `yaml:"classification_threshold" default:"0.5"`
	NotificationThreshold   float64       `yaml:"notification_threshold" default:"0.7"`
	CycleTimeout            time.Duration `yaml:"cycle_timeout" default:"10s"`
	DefaultHeartRate        float64       `yaml:"default_heart_rate" default:"70"`
	SchedulerInterval       time.Duration `yaml:"scheduler_interval" default:"5m"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill documented defaults for anything the file leaves unset
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if c.Pipeline.Window <= 0 {
		return fmt.Errorf("pipeline.window must be positive")
	}
	if c.Pipeline.MinReadings <= 0 {
		return fmt.Errorf("pipeline.min_readings must be positive")
	}
	if c.Pipeline.ClassificationThreshold < 0 || c.Pipeline.ClassificationThreshold > 1 {
		return fmt.Errorf("pipeline.classification_threshold must be in [0,1]")
	}
	if c.Pipeline.NotificationThreshold < 0 || c.Pipeline.NotificationThreshold > 1 {
		return fmt.Errorf("pipeline.notification_threshold must be in [0,1]")
	}
	return nil
}
