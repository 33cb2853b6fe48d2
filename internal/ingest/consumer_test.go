package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soltixdb/streamwatch/internal/compression"
	"github.com/soltixdb/streamwatch/internal/config"
	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/soltixdb/streamwatch/internal/queue"
	"github.com/soltixdb/streamwatch/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	stream string
	value  float64
}

type recordingSubmitter struct {
	mu   sync.Mutex
	got  []submission
	errs map[string]error
}

func (r *recordingSubmitter) Submit(_ context.Context, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[name]; err != nil {
		return err
	}
	r.got = append(r.got, submission{name, value})
	return nil
}

func newTestConsumer(target Submitter, compressor compression.Compressor) *QueueConsumer {
	return NewQueueConsumer(nil, target, ConsumerOptions{
		Subject:       "measurements",
		DefaultStream: "default",
		Compressor:    compressor,
		Logger:        logging.NewNop(),
	})
}

func TestQueueConsumer_Handle(t *testing.T) {
	target := &recordingSubmitter{}
	c := newTestConsumer(target, nil)
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"cpu","value":1.5}`)))
	require.NoError(t, c.Handle(ctx, "measurements", []byte(`{"values":[1,2]}`)))
	require.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"mem","value":9,"values":[10]}`)))

	assert.Equal(t, []submission{
		{"cpu", 1.5},
		{"default", 1},
		{"default", 2},
		{"mem", 9},
		{"mem", 10},
	}, target.got)
	assert.Equal(t, uint64(5), c.Accepted())
	assert.Zero(t, c.Rejected())
}

func TestQueueConsumer_DropsBadMessages(t *testing.T) {
	target := &recordingSubmitter{}
	c := newTestConsumer(target, nil)
	ctx := context.Background()

	// Every one of these is acknowledged so it is not redelivered
	assert.NoError(t, c.Handle(ctx, "measurements", []byte(`not json`)))
	assert.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"cpu"}`)))
	assert.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"cpu","values":[1,"NaN","-Inf",4]}`)))

	assert.Equal(t, []submission{{"cpu", 1}, {"cpu", 4}}, target.got)
	assert.Equal(t, uint64(2), c.Accepted())
	assert.Equal(t, uint64(4), c.Rejected())
}

func TestQueueConsumer_ErrorClassification(t *testing.T) {
	transient := errors.New("pipeline busy")
	target := &recordingSubmitter{errs: map[string]error{
		"bad":  stream.ErrInvalidStreamName,
		"full": stream.ErrTooManyStreams,
		"busy": transient,
	}}
	c := newTestConsumer(target, nil)
	ctx := context.Background()

	assert.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"bad","values":[1,2]}`)))
	assert.NoError(t, c.Handle(ctx, "measurements", []byte(`{"stream":"full","value":1}`)))
	assert.ErrorIs(t, c.Handle(ctx, "measurements", []byte(`{"stream":"busy","value":1}`)), transient)
	assert.Equal(t, uint64(3), c.Rejected())
}

func TestQueueConsumer_Snappy(t *testing.T) {
	target := &recordingSubmitter{}
	snappy := compression.NewSnappyCompressor()
	c := newTestConsumer(target, snappy)

	payload, err := snappy.Compress([]byte(`{"stream":"cpu","value":3}`))
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), "measurements", payload))
	assert.Equal(t, []submission{{"cpu", 3}}, target.got)

	require.NoError(t, c.Handle(context.Background(), "measurements", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))
	assert.Equal(t, uint64(1), c.Rejected())
}

func TestQueueConsumer_EndToEnd(t *testing.T) {
	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	registry, err := stream.NewRegistry(stream.Options{
		Detector: detector.Config{Capacity: 50, WindowSize: 10, Threshold: 3},
		Logger:   logging.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group := stream.NewPipelineGroup(ctx, registry, stream.PipelineOptions{
		BufferSize: 16,
		Policy:     stream.OverflowBlock,
		Logger:     logging.NewNop(),
	})

	c := NewQueueConsumer(q, group, ConsumerOptions{
		Subject:       "measurements",
		DefaultStream: "default",
		Logger:        logging.NewNop(),
	})
	require.NoError(t, c.Start(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(ctx, "measurements", []byte(`{"stream":"cpu","value":1}`)))
	}

	require.Eventually(t, func() bool { return c.Accepted() == 5 }, 2*time.Second, 10*time.Millisecond)
	group.Stop()

	s, err := registry.Get("cpu")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.Info().Observed)
}
