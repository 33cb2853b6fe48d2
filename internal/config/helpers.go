package config

import (
	"fmt"
	"strings"
)

// envKeyReplacer maps nested keys to env names: detector.window_size -> STREAMWATCH_DETECTOR_WINDOW_SIZE
var envKeyReplacer = strings.NewReplacer(".", "_")

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// NeedsQueue reports whether any component talks to the message queue
func (c *Config) NeedsQueue() bool {
	return c.Alerts.QueueEnabled || c.Ingest.QueueEnabled
}
