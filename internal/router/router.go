package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soltixdb/streamwatch/internal/config"
	"github.com/soltixdb/streamwatch/internal/handlers"
	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/middleware"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// Setup configures all routes and middlewares. gatherer may be nil, in
// which case /metrics is not served.
func Setup(app *fiber.App, logger *logging.Logger, registry *stream.Registry,
	gatherer prometheus.Gatherer, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, registry)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.MiddlewareConfigFor(&cfg)))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth))

	v1.Get("/streams", h.ListStreams)
	v1.Get("/streams/:stream", h.GetStream)
	v1.Delete("/streams/:stream", h.DeleteStream)
	v1.Get("/streams/:stream/snapshot", h.GetSnapshot)
	v1.Post("/streams/:stream/observe", h.Observe)
	v1.Post("/streams/:stream/observe/batch", h.ObserveBatch)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, registry *stream.Registry,
	gatherer prometheus.Gatherer, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "streamwatch",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, registry, gatherer, cfg)

	return app
}
