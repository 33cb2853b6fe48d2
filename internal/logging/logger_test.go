package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/soltixdb/streamwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_FieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	logger.Debug("hidden")
	logger.With("stream", "cpu").Warn("anomaly detected", "value", 412.5, "error", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "anomaly detected", lines[0]["message"])
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "cpu", lines[0]["stream"])
	assert.Equal(t, 412.5, lines[0]["value"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.DebugLevel)
	_ = parent.With("child", true)

	parent.Info("parent")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithStream(ctx, "sensor-7")

	InfoCtx(ctx, "observed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "sensor-7", lines[0]["stream"])
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, Global(), FromContext(context.Background()))
}

func TestNewFromConfig(t *testing.T) {
	logger, err := NewFromConfig(config.LoggingConfig{Level: "warn", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zerolog.WarnLevel))
	assert.False(t, logger.Enabled(zerolog.InfoLevel))

	path := t.TempDir() + "/logs/app.log"
	logger, err = NewFromConfig(config.LoggingConfig{Level: "bogus", Format: "console", OutputPath: path})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zerolog.InfoLevel))
}

func TestFiberMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	app := fiber.New()
	app.Use(FiberMiddlewareWithConfig(logger, DefaultMiddlewareConfig()))
	app.Get("/v1/streams", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c.UserContext()))
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/v1/streams", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1, "health checks are not logged")
	assert.Equal(t, "/v1/streams", lines[0]["path"])
	assert.Equal(t, "fixed-id", lines[0]["request_id"])
}

func TestMiddlewareConfigFor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	assert.Equal(t, []string{"/health", "/metrics"}, MiddlewareConfigFor(cfg).SkipPaths)

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	assert.Empty(t, MiddlewareConfigFor(cfg).SkipPaths, "development logs every request")
}

func TestFiberMiddleware_StreamField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	cfg := config.DefaultConfig()
	app := fiber.New()
	app.Use(FiberMiddlewareWithConfig(logger, MiddlewareConfigFor(cfg)))
	app.Post("/v1/streams/:stream/observe", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("POST", "/v1/streams/cpu/observe", nil))
	require.NoError(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "cpu", lines[0]["stream"])
}

func TestNewFromConfig_ServiceField(t *testing.T) {
	path := t.TempDir() + "/app.log"
	logger, err := NewFromConfig(config.LoggingConfig{Level: "INFO", Format: "json", OutputPath: path})
	require.NoError(t, err)
	logger.Info("ready")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "ready", entry["message"])
}
