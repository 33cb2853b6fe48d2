package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"

	"github.com/soltixdb/streamwatch/internal/compression"
	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/models"
	"github.com/soltixdb/streamwatch/internal/queue"
	"github.com/soltixdb/streamwatch/internal/stream"
)

// Submitter accepts a value for a named stream. stream.PipelineGroup
// implements it.
type Submitter interface {
	Submit(ctx context.Context, stream string, value float64) error
}

// QueueConsumer reads measurement messages from a queue subject and submits
// their values. Messages that can never succeed are logged and acknowledged;
// only transient failures are returned to the queue for redelivery.
type QueueConsumer struct {
	subscriber    queue.Subscriber
	subject       string
	defaultStream string
	target        Submitter
	compressor    compression.Compressor
	logger        *logging.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// ConsumerOptions configures a QueueConsumer
type ConsumerOptions struct {
	Subject       string
	DefaultStream string
	Compressor    compression.Compressor // nil for plain JSON
	Logger        *logging.Logger
}

// NewQueueConsumer creates a consumer feeding target
func NewQueueConsumer(subscriber queue.Subscriber, target Submitter, opts ConsumerOptions) *QueueConsumer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Global()
	}
	compressor := opts.Compressor
	if compressor == nil {
		compressor = &compression.NoneCompressor{}
	}

	return &QueueConsumer{
		subscriber:    subscriber,
		subject:       opts.Subject,
		defaultStream: opts.DefaultStream,
		target:        target,
		compressor:    compressor,
		logger:        logger.With("component", "queue_consumer", "subject", opts.Subject),
	}
}

// Start subscribes to the subject. Consumption stops when ctx is cancelled.
func (c *QueueConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(ctx, c.subject, c.Handle); err != nil {
		return err
	}
	c.logger.Info("Consuming measurements", "default_stream", c.defaultStream)
	return nil
}

// Handle processes one queue message
func (c *QueueConsumer) Handle(ctx context.Context, subject string, data []byte) error {
	raw, err := c.compressor.Decompress(data)
	if err != nil {
		c.rejected.Add(1)
		c.logger.Warn("Dropping undecodable message", "error", err)
		return nil
	}

	var msg models.MeasurementMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.rejected.Add(1)
		c.logger.Warn("Dropping malformed message", "error", err)
		return nil
	}

	name := msg.Stream
	if name == "" {
		name = c.defaultStream
	}

	values := models.Floats(msg.Values)
	if msg.Value != nil {
		values = append([]float64{float64(*msg.Value)}, values...)
	}
	if len(values) == 0 {
		c.rejected.Add(1)
		c.logger.Warn("Dropping message without values", "stream", name)
		return nil
	}

	for i, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			c.rejected.Add(1)
			c.logger.Warn("Skipping non-finite value", "stream", name, "index", i)
			continue
		}

		if err := c.target.Submit(ctx, name, value); err != nil {
			if isPermanent(err) {
				c.rejected.Add(uint64(len(values) - i))
				c.logger.Warn("Dropping message", "stream", name, "error", err)
				return nil
			}
			return err
		}
		c.accepted.Add(1)
	}
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, stream.ErrInvalidStreamName) || errors.Is(err, stream.ErrTooManyStreams)
}

// Accepted returns the number of values submitted
func (c *QueueConsumer) Accepted() uint64 {
	return c.accepted.Load()
}

// Rejected returns the number of values dropped
func (c *QueueConsumer) Rejected() uint64 {
	return c.rejected.Load()
}
