package config

import (
	"fmt"
	"time"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("./config")         // Alternative config directory
		v.AddConfigPath("/etc/streamwatch") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("STREAMWATCH")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5575)

	// Detector defaults
	v.SetDefault("detector.capacity", detector.DefaultCapacity)
	v.SetDefault("detector.window_size", detector.DefaultWindowSize)
	v.SetDefault("detector.threshold", detector.DefaultThreshold)
	v.SetDefault("detector.sample_stddev", false)

	// Stream registry defaults
	v.SetDefault("streams.max_streams", 1024)
	v.SetDefault("streams.default_stream", "default")

	// Pipeline defaults
	v.SetDefault("pipeline.buffer_size", 1024)
	v.SetDefault("pipeline.overflow_policy", "drop_oldest")

	// Ingest defaults
	v.SetDefault("ingest.simulate", false)
	v.SetDefault("ingest.interval", "1s")
	v.SetDefault("ingest.queue_enabled", false)
	v.SetDefault("ingest.queue_subject", "streamwatch.measurements")

	// Alert defaults
	v.SetDefault("alerts.queue_enabled", false)
	v.SetDefault("alerts.subject_prefix", "streamwatch.anomalies")
	v.SetDefault("alerts.compress", false)
	v.SetDefault("alerts.log_all", false)

	// Queue defaults
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.url", "nats://localhost:4222")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 5575,
		},
		Detector: DetectorConfig{
			Capacity:   detector.DefaultCapacity,
			WindowSize: detector.DefaultWindowSize,
			Threshold:  detector.DefaultThreshold,
		},
		Streams: StreamsConfig{
			MaxStreams:    1024,
			DefaultStream: "default",
		},
		Pipeline: PipelineConfig{
			BufferSize:     1024,
			OverflowPolicy: "drop_oldest",
		},
		Ingest: IngestConfig{
			Interval:     time.Second,
			QueueSubject: "streamwatch.measurements",
		},
		Alerts: AlertsConfig{
			SubjectPrefix: "streamwatch.anomalies",
		},
		Queue: QueueConfig{
			Type: "memory",
			URL:  "nats://localhost:4222",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
