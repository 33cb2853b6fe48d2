package handlers

import (
	"time"

	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	registry  *stream.Registry
	startedAt time.Time
}

// New creates a new handler instance
func New(logger *logging.Logger, registry *stream.Registry) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		startedAt: time.Now(),
	}
}
