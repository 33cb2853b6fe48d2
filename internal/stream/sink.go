package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/streamwatch/internal/compression"
	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/queue"
)

// Sink receives every verdict produced by a stream. Emit is called while the
// stream is locked, so implementations should return promptly.
type Sink interface {
	Emit(ctx context.Context, stream string, v detector.Verdict) error
}

// Forgetter is implemented by sinks that keep per-stream state
type Forgetter interface {
	Forget(stream string)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, stream string, v detector.Verdict) error

// Emit calls f
func (f SinkFunc) Emit(ctx context.Context, stream string, v detector.Verdict) error {
	return f(ctx, stream, v)
}

// LogSink logs anomalies at warn level and, when logAll is set, every other
// verdict at debug level.
type LogSink struct {
	logger *logging.Logger
	logAll bool
}

// NewLogSink creates a LogSink
func NewLogSink(logger *logging.Logger, logAll bool) *LogSink {
	if logger == nil {
		logger = logging.Global()
	}
	return &LogSink{
		logger: logger.With("component", "anomaly_log"),
		logAll: logAll,
	}
}

// Emit implements Sink
func (s *LogSink) Emit(ctx context.Context, stream string, v detector.Verdict) error {
	if v.IsAnomaly {
		fields := []interface{}{
			"stream", stream,
			"seq", v.Seq,
			"value", v.Value,
			"mean", v.Mean,
			"stddev", v.StdDev,
			"score", v.Score,
			"kind", string(v.Kind),
		}
		if v.Expected != nil {
			fields = append(fields, "expected_min", v.Expected.Min, "expected_max", v.Expected.Max)
		}
		if id := logging.RequestID(ctx); id != "" {
			fields = append(fields, "request_id", id)
		}
		s.logger.Warn("Anomaly detected", fields...)
		return nil
	}

	if s.logAll {
		s.logger.Debug("Observation",
			"stream", stream,
			"seq", v.Seq,
			"value", v.Value,
			"mean", v.Mean,
			"stddev", v.StdDev,
			"window_full", v.WindowFull,
		)
	}
	return nil
}

// AnomalyEvent is the queue payload published for each anomalous verdict
type AnomalyEvent struct {
	ID         string    `json:"id"`
	Stream     string    `json:"stream"`
	DetectedAt time.Time `json:"detected_at"`
	detector.Verdict
}

// QueueSink publishes anomaly events to <prefix>.<stream>
type QueueSink struct {
	publisher  queue.Publisher
	prefix     string
	compressor compression.Compressor
}

// NewQueueSink creates a QueueSink. A nil compressor sends plain JSON.
func NewQueueSink(publisher queue.Publisher, prefix string, compressor compression.Compressor) *QueueSink {
	if compressor == nil {
		compressor = &compression.NoneCompressor{}
	}
	return &QueueSink{
		publisher:  publisher,
		prefix:     prefix,
		compressor: compressor,
	}
}

// Subject returns the subject events of stream are published to
func (s *QueueSink) Subject(stream string) string {
	if s.prefix == "" {
		return stream
	}
	return s.prefix + "." + stream
}

// Emit implements Sink. Normal verdicts are not published.
func (s *QueueSink) Emit(ctx context.Context, stream string, v detector.Verdict) error {
	if !v.IsAnomaly {
		return nil
	}

	event := AnomalyEvent{
		ID:         uuid.New().String(),
		Stream:     stream,
		DetectedAt: time.Now().UTC(),
		Verdict:    v,
	}

	data, err := EncodeAnomalyEvent(event, s.compressor)
	if err != nil {
		return err
	}

	subject := s.Subject(stream)
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish anomaly to %s: %w", subject, err)
	}
	return nil
}

// EncodeAnomalyEvent marshals and compresses an event
func EncodeAnomalyEvent(event AnomalyEvent, compressor compression.Compressor) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anomaly event: %w", err)
	}
	if compressor == nil {
		return data, nil
	}
	return compressor.Compress(data)
}

// DecodeAnomalyEvent reverses EncodeAnomalyEvent
func DecodeAnomalyEvent(data []byte, compressor compression.Compressor) (AnomalyEvent, error) {
	var event AnomalyEvent

	if compressor != nil {
		raw, err := compressor.Decompress(data)
		if err != nil {
			return event, err
		}
		data = raw
	}

	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal anomaly event: %w", err)
	}
	return event, nil
}
