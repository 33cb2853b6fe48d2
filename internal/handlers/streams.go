package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/streamwatch/internal/models"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// ListStreams handles GET /v1/streams
func (h *Handler) ListStreams(c *fiber.Ctx) error {
	infos := h.registry.List()
	return c.JSON(models.StreamListResponse{
		Streams: infos,
		Count:   len(infos),
	})
}

// Observe handles POST /v1/streams/:stream/observe
func (h *Handler) Observe(c *fiber.Ctx) error {
	name := c.Params("stream")

	var req models.ObserveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, CodeInvalidJSON, "Failed to parse request body: "+err.Error())
	}
	if req.Value == nil {
		return badRequest(c, CodeInvalidRequest, "'value' field is required")
	}

	verdict, err := h.registry.Observe(c.UserContext(), name, float64(*req.Value))
	if err != nil {
		return respondError(c, err, nil)
	}

	return c.JSON(models.ObserveResponse{
		Stream:  name,
		Verdict: verdict,
	})
}

// ObserveBatch handles POST /v1/streams/:stream/observe/batch
func (h *Handler) ObserveBatch(c *fiber.Ctx) error {
	name := c.Params("stream")

	var req models.ObserveBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, CodeInvalidJSON, "Failed to parse request body: "+err.Error())
	}
	if len(req.Values) == 0 {
		return badRequest(c, CodeInvalidRequest, "'values' must contain at least one value")
	}

	verdicts, err := h.registry.ObserveBatch(c.UserContext(), name, models.Floats(req.Values))
	if err != nil {
		var batchErr *stream.BatchError
		if errors.As(err, &batchErr) {
			h.logger.Debug("Batch stopped at rejected value",
				"stream", name,
				"index", batchErr.Index,
				"accepted", len(verdicts),
			)
			return respondError(c, err, map[string]interface{}{
				"index":    batchErr.Index,
				"accepted": len(verdicts),
			})
		}
		return respondError(c, err, nil)
	}

	anomalies := 0
	for _, v := range verdicts {
		if v.IsAnomaly {
			anomalies++
		}
	}

	return c.JSON(models.ObserveBatchResponse{
		Stream:    name,
		Accepted:  len(verdicts),
		Anomalies: anomalies,
		Verdicts:  verdicts,
	})
}

// GetStream handles GET /v1/streams/:stream
func (h *Handler) GetStream(c *fiber.Ctx) error {
	s, err := h.lookup(c.Params("stream"))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(s.Info())
}

// GetSnapshot handles GET /v1/streams/:stream/snapshot?limit=N
func (h *Handler) GetSnapshot(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return badRequest(c, CodeInvalidRequest, "'limit' must not be negative")
	}

	s, err := h.lookup(c.Params("stream"))
	if err != nil {
		return respondError(c, err, nil)
	}

	snap := s.Snapshot(limit)
	return c.JSON(models.SnapshotResponse{
		Snapshot: snap,
		Count:    len(snap.Measurements),
	})
}

// DeleteStream handles DELETE /v1/streams/:stream
func (h *Handler) DeleteStream(c *fiber.Ctx) error {
	name := c.Params("stream")
	if err := stream.ValidateStreamName(name); err != nil {
		return respondError(c, err, nil)
	}
	if err := h.registry.Delete(name); err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(models.DeleteResponse{
		Stream:  name,
		Deleted: true,
	})
}

func (h *Handler) lookup(name string) (*stream.Stream, error) {
	if err := stream.ValidateStreamName(name); err != nil {
		return nil, err
	}
	return h.registry.Get(name)
}
