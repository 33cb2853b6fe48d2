package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/models"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// Error codes returned in the error envelope
const (
	CodeInvalidJSON    = "INVALID_JSON"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidStream  = "INVALID_STREAM"
	CodeNonFinite      = "NON_FINITE_VALUE"
	CodeNotFound       = "STREAM_NOT_FOUND"
	CodeTooManyStreams = "TOO_MANY_STREAMS"
)

// classify maps a registry or detector error to an HTTP status and code.
// ok is false for errors that should reach the global error handler.
func classify(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, detector.ErrNonFiniteValue):
		return fiber.StatusBadRequest, CodeNonFinite, true
	case errors.Is(err, stream.ErrInvalidStreamName):
		return fiber.StatusBadRequest, CodeInvalidStream, true
	case errors.Is(err, stream.ErrStreamNotFound):
		return fiber.StatusNotFound, CodeNotFound, true
	case errors.Is(err, stream.ErrTooManyStreams):
		return fiber.StatusConflict, CodeTooManyStreams, true
	default:
		return fiber.StatusInternalServerError, "", false
	}
}

// respondError writes the error envelope for known errors and returns
// unknown ones so middleware.ErrorHandler can deal with them.
func respondError(c *fiber.Ctx, err error, details map[string]interface{}) error {
	status, code, ok := classify(err)
	if !ok {
		return err
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: details,
		},
	})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.NewErrorResponse(code, message))
}
