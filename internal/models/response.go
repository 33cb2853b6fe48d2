package models

import (
	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Streams   int    `json:"streams"`
}

// StreamListResponse represents list streams response
type StreamListResponse struct {
	Streams []stream.Info `json:"streams"`
	Count   int           `json:"count"`
}

// ObserveResponse represents the verdict for one submitted value
type ObserveResponse struct {
	Stream  string           `json:"stream"`
	Verdict detector.Verdict `json:"verdict"`
}

// ObserveBatchResponse represents the verdicts for a batch
type ObserveBatchResponse struct {
	Stream    string             `json:"stream"`
	Accepted  int                `json:"accepted"`
	Anomalies int                `json:"anomalies"`
	Verdicts  []detector.Verdict `json:"verdicts"`
}

// SnapshotResponse represents the retained history of a stream
type SnapshotResponse struct {
	stream.Snapshot
	Count int `json:"count"`
}

// DeleteResponse represents delete stream response
type DeleteResponse struct {
	Stream  string `json:"stream"`
	Deleted bool   `json:"deleted"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse creates an ErrorResponse
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}
