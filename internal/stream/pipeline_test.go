package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soltixdb/streamwatch/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(snap Snapshot) []float64 {
	out := make([]float64, len(snap.Measurements))
	for i, m := range snap.Measurements {
		out[i] = m.Value
	}
	return out
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := ParseOverflowPolicy("block")
	require.NoError(t, err)
	assert.Equal(t, OverflowBlock, p)

	p, err = ParseOverflowPolicy("DROP_OLDEST")
	require.NoError(t, err)
	assert.Equal(t, OverflowDropOldest, p)

	_, err = ParseOverflowPolicy("drop_newest")
	assert.Error(t, err)
}

func TestNewPipeline_Invalid(t *testing.T) {
	r := newTestRegistry(t, 0)

	_, err := NewPipeline("cpu", r, PipelineOptions{BufferSize: 0})
	assert.Error(t, err)

	_, err = NewPipeline("cpu", r, PipelineOptions{BufferSize: 1, Policy: "lifo"})
	assert.Error(t, err)
}

func TestPipeline_PreservesOrder(t *testing.T) {
	r := newTestRegistry(t, 0)
	p, err := NewPipeline("cpu", r, PipelineOptions{BufferSize: 4, Policy: OverflowBlock, Logger: logging.NewNop()})
	require.NoError(t, err)

	p.Start(context.Background())
	for i := 1; i <= 20; i++ {
		require.NoError(t, p.Submit(context.Background(), float64(i)))
	}
	p.Stop()

	assert.Equal(t, uint64(20), p.Processed())
	assert.Zero(t, p.Dropped())

	s, err := r.Get("cpu")
	require.NoError(t, err)
	got := values(s.Snapshot(0))
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, float64(i+1), v)
	}
}

func TestPipeline_DropOldestAccounting(t *testing.T) {
	r := newTestRegistry(t, 0)

	var mu sync.Mutex
	drops := 0
	p, err := NewPipeline("cpu", r, PipelineOptions{
		BufferSize: 3,
		Policy:     OverflowDropOldest,
		Logger:     logging.NewNop(),
		OnDrop: func(stream string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "cpu", stream)
			drops++
		},
	})
	require.NoError(t, err)

	// Worker not started yet, so the buffer fills up
	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Submit(context.Background(), float64(i)))
	}
	assert.Equal(t, uint64(2), p.Dropped())
	assert.Equal(t, 2, drops)
	assert.Equal(t, 3, p.Pending())

	p.Start(context.Background())
	p.Stop()

	s, err := r.Get("cpu")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, values(s.Snapshot(0)))
	assert.Equal(t, uint64(3), p.Processed())
}

func TestPipeline_BlockHonoursContext(t *testing.T) {
	r := newTestRegistry(t, 0)
	p, err := NewPipeline("cpu", r, PipelineOptions{BufferSize: 1, Policy: OverflowBlock, Logger: logging.NewNop()})
	require.NoError(t, err)
	defer p.Stop()

	require.NoError(t, p.Submit(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, 2), context.DeadlineExceeded)
	assert.Zero(t, p.Dropped())
}

func TestPipeline_StopReleasesBlockedSubmit(t *testing.T) {
	r := newTestRegistry(t, 0)
	p, err := NewPipeline("cpu", r, PipelineOptions{BufferSize: 1, Policy: OverflowBlock, Logger: logging.NewNop()})
	require.NoError(t, err)

	require.NoError(t, p.Submit(context.Background(), 1))

	result := make(chan error, 1)
	go func() {
		result <- p.Submit(context.Background(), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	p.Stop()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrPipelineStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Submit not released by Stop")
	}

	assert.ErrorIs(t, p.Submit(context.Background(), 3), ErrPipelineStopped)
	p.Stop() // idempotent
}

func TestPipeline_RejectedValues(t *testing.T) {
	r := newTestRegistry(t, 0)
	p, err := NewPipeline("bad name", r, PipelineOptions{BufferSize: 2, Logger: logging.NewNop()})
	require.NoError(t, err)

	p.Start(context.Background())
	require.NoError(t, p.Submit(context.Background(), 1))
	p.Stop()

	assert.Equal(t, uint64(1), p.Rejected())
	assert.Zero(t, p.Processed())
}

func TestPipelineGroup(t *testing.T) {
	r := newTestRegistry(t, 2)
	g := NewPipelineGroup(context.Background(), r, PipelineOptions{
		BufferSize: 8,
		Policy:     OverflowBlock,
		Logger:     logging.NewNop(),
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, g.Submit(ctx, "a", float64(i)))
		require.NoError(t, g.Submit(ctx, "b", float64(100+i)))
	}

	assert.ErrorIs(t, g.Submit(ctx, "c", 1), ErrTooManyStreams)
	assert.ErrorIs(t, g.Submit(ctx, "bad name", 1), ErrInvalidStreamName)

	g.Stop()
	assert.Zero(t, g.Dropped())
	assert.ErrorIs(t, g.Submit(ctx, "a", 1), ErrPipelineStopped)

	a, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), a.Info().Observed)

	b, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Snapshot(0).Measurements[0].Value)
}

func TestPipelineGroup_DeleteRemovesPipeline(t *testing.T) {
	r := newTestRegistry(t, 0)
	g := NewPipelineGroup(context.Background(), r, PipelineOptions{
		BufferSize: 16,
		Policy:     OverflowBlock,
		Logger:     logging.NewNop(),
	})
	defer g.Stop()

	ctx := context.Background()
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("sensor-%d", i)
		for j := 0; j < 5; j++ {
			require.NoError(t, g.Submit(ctx, names[i], float64(j)))
		}
	}
	assert.Equal(t, 50, g.Len())

	for _, name := range names {
		require.NoError(t, r.Delete(name))
	}

	assert.Zero(t, g.Len())
	assert.Zero(t, r.Len(), "pending values must not recreate deleted streams")
}

func TestPipelineGroup_SubmitAfterDeleteStartsFresh(t *testing.T) {
	r := newTestRegistry(t, 0)
	g := NewPipelineGroup(context.Background(), r, PipelineOptions{
		BufferSize: 4,
		Policy:     OverflowBlock,
		Logger:     logging.NewNop(),
	})

	ctx := context.Background()
	require.NoError(t, g.Submit(ctx, "cpu", 1))
	require.NoError(t, r.Delete("cpu"))
	require.NoError(t, g.Submit(ctx, "cpu", 2))
	g.Stop()

	s, err := r.Get("cpu")
	require.NoError(t, err)
	snap := s.Snapshot(0)
	require.Len(t, snap.Measurements, 1)
	assert.Equal(t, uint64(1), snap.Measurements[0].Seq)
	assert.Equal(t, 2.0, snap.Measurements[0].Value)
}

func TestPipeline_DiscardSkipsPending(t *testing.T) {
	r := newTestRegistry(t, 0)
	p, err := NewPipeline("cpu", r, PipelineOptions{BufferSize: 8, Logger: logging.NewNop()})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), float64(i)))
	}
	p.Start(context.Background())
	p.Discard()

	assert.ErrorIs(t, p.Submit(context.Background(), 1), ErrPipelineStopped)
	assert.LessOrEqual(t, p.Processed(), uint64(5))
	assert.Zero(t, p.Pending())
}
