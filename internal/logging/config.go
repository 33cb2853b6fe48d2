package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/soltixdb/streamwatch/internal/config"
)

// ServiceName tags every entry written by a logger built from configuration
const ServiceName = "streamwatch"

// NewFromConfig builds the service logger. Unknown levels fall back to info;
// console and pretty formats use zerolog's human-readable writer.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: timeFormat(cfg.TimeFormat),
		}
	}

	return NewWithWriter(output, level).With("service", ServiceName), nil
}

// openOutput resolves stdout, stderr or an append-only log file
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func timeFormat(format string) string {
	switch format {
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Unix":
		return time.UnixDate
	case "Kitchen":
		return time.Kitchen
	case "StampMilli":
		return time.StampMilli
	default:
		return time.RFC3339
	}
}

// MiddlewareConfigFor returns the request logging setup for cfg. Every entry
// carries the stream path parameter when the route has one. Development mode
// also logs health and metrics scrapes.
func MiddlewareConfigFor(cfg *config.Config) MiddlewareConfig {
	mc := DefaultMiddlewareConfig()
	if cfg.IsDevelopment() {
		mc.SkipPaths = nil
	}
	mc.AdditionalFields = streamField
	return mc
}

func streamField(c *fiber.Ctx) []interface{} {
	if name := c.Params("stream"); name != "" {
		return []interface{}{"stream", name}
	}
	return nil
}
