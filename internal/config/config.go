package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/streamwatch/internal/detector"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Detector DetectorConfig `mapstructure:"detector"`
	Streams  StreamsConfig  `mapstructure:"streams"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// DetectorConfig holds the per-stream detector settings
type DetectorConfig struct {
	Capacity     int     `mapstructure:"capacity"`      // History retained per stream (default: 3600)
	WindowSize   int     `mapstructure:"window_size"`   // Rolling window length (default: 100)
	Threshold    float64 `mapstructure:"threshold"`     // Standard deviations before a value is flagged (default: 3.0)
	SampleStdDev bool    `mapstructure:"sample_stddev"` // Use n-1 as variance denominator
}

// StreamsConfig bounds the stream registry
type StreamsConfig struct {
	MaxStreams    int    `mapstructure:"max_streams"`    // Maximum number of concurrently tracked streams
	DefaultStream string `mapstructure:"default_stream"` // Stream used by the simulator and unnamed queue messages
}

// PipelineConfig configures the bounded hand-off queue in front of a stream
type PipelineConfig struct {
	BufferSize     int    `mapstructure:"buffer_size"`     // Pending values per pipeline
	OverflowPolicy string `mapstructure:"overflow_policy"` // block, drop_oldest
}

// IngestConfig configures the built-in ingestion collaborators
type IngestConfig struct {
	Simulate     bool          `mapstructure:"simulate"`      // Run the synthetic producer
	Interval     time.Duration `mapstructure:"interval"`      // Pace of the synthetic producer (default: 1s)
	Seed         int64         `mapstructure:"seed"`          // 0 picks a time-based seed
	QueueEnabled bool          `mapstructure:"queue_enabled"` // Consume measurements from the queue
	QueueSubject string        `mapstructure:"queue_subject"` // Subject/topic carrying measurements
}

// AlertsConfig configures verdict sinks
type AlertsConfig struct {
	QueueEnabled  bool   `mapstructure:"queue_enabled"`  // Publish anomaly events to the queue
	SubjectPrefix string `mapstructure:"subject_prefix"` // Events go to <prefix>.<stream>
	Compress      bool   `mapstructure:"compress"`       // Snappy-compress event payloads
	LogAll        bool   `mapstructure:"log_all"`        // Log every verdict at debug level, not only anomalies
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "streamwatch")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "streamwatch-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}

	if err := c.Streams.Validate(); err != nil {
		return fmt.Errorf("streams config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate checks the detector invariants
func (c *DetectorConfig) Validate() error {
	return c.ToDetectorConfig().Validate()
}

// ToDetectorConfig converts to the detector package's Config
func (c *DetectorConfig) ToDetectorConfig() detector.Config {
	return detector.Config{
		Capacity:     c.Capacity,
		WindowSize:   c.WindowSize,
		Threshold:    c.Threshold,
		SampleStdDev: c.SampleStdDev,
	}
}

// Validate validates streams configuration
func (c *StreamsConfig) Validate() error {
	if c.MaxStreams < 1 {
		return fmt.Errorf("streams.max_streams must be at least 1")
	}
	if c.DefaultStream == "" {
		return fmt.Errorf("streams.default_stream is required")
	}
	return nil
}

// Validate validates pipeline configuration
func (c *PipelineConfig) Validate() error {
	if c.BufferSize < 1 {
		return fmt.Errorf("pipeline.buffer_size must be at least 1")
	}

	switch strings.ToLower(c.OverflowPolicy) {
	case "block", "drop_oldest":
	default:
		return fmt.Errorf("pipeline.overflow_policy must be 'block' or 'drop_oldest'")
	}

	return nil
}

// Validate validates ingest configuration
func (c *IngestConfig) Validate() error {
	if c.Simulate && c.Interval <= 0 {
		return fmt.Errorf("ingest.interval must be positive when simulate is enabled")
	}
	if c.QueueEnabled && c.QueueSubject == "" {
		return fmt.Errorf("ingest.queue_subject is required when queue_enabled is set")
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
