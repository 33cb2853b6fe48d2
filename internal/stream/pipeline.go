package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/logging"
)

// OverflowPolicy decides what Submit does when the pipeline buffer is full
type OverflowPolicy string

const (
	// OverflowBlock makes Submit wait for room, honouring its context
	OverflowBlock OverflowPolicy = "block"

	// OverflowDropOldest discards the oldest pending value to make room
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// ParseOverflowPolicy maps a configuration value to an OverflowPolicy
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(strings.ToLower(s)) {
	case OverflowBlock:
		return OverflowBlock, nil
	case OverflowDropOldest:
		return OverflowDropOldest, nil
	default:
		return "", fmt.Errorf("unknown overflow policy: %q", s)
	}
}

// Observer is the part of Registry a pipeline feeds
type Observer interface {
	Observe(ctx context.Context, name string, value float64) (detector.Verdict, error)
}

// PipelineOptions configures a Pipeline
type PipelineOptions struct {
	BufferSize int
	Policy     OverflowPolicy
	OnDrop     func(stream string) // called for every value discarded by drop_oldest
	Logger     *logging.Logger
}

// Pipeline is a bounded hand-off queue in front of one stream. A single
// worker drains it, so values reach the detector in submission order.
type Pipeline struct {
	stream   string
	observer Observer
	policy   OverflowPolicy
	onDrop   func(string)
	logger   *logging.Logger

	buf    chan float64
	stopCh chan struct{}
	done   chan struct{}

	mu        sync.RWMutex
	started   bool
	stopped   bool
	stopOnce  sync.Once
	discarded atomic.Bool

	dropped   atomic.Uint64
	processed atomic.Uint64
	rejected  atomic.Uint64
}

// NewPipeline creates a pipeline for stream. Call Start to begin draining.
func NewPipeline(stream string, observer Observer, opts PipelineOptions) (*Pipeline, error) {
	if opts.BufferSize < 1 {
		return nil, fmt.Errorf("pipeline buffer size must be at least 1, got %d", opts.BufferSize)
	}
	if opts.Policy == "" {
		opts.Policy = OverflowBlock
	}
	if _, err := ParseOverflowPolicy(string(opts.Policy)); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Global()
	}

	return &Pipeline{
		stream:   stream,
		observer: observer,
		policy:   opts.Policy,
		onDrop:   opts.OnDrop,
		logger:   logger.With("component", "pipeline", "stream", stream),
		buf:      make(chan float64, opts.BufferSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the worker. Observations use ctx; cancelling it does not
// stop the worker, Stop does.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	go p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)

	for value := range p.buf {
		if p.discarded.Load() {
			continue
		}
		if _, err := p.observer.Observe(ctx, p.stream, value); err != nil {
			p.rejected.Add(1)
			p.logger.Warn("Observation rejected", "value", value, "error", err)
			continue
		}
		p.processed.Add(1)
	}
}

// Submit hands a value to the worker according to the overflow policy
func (p *Pipeline) Submit(ctx context.Context, value float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPipelineStopped
	}

	if p.policy == OverflowDropOldest {
		for {
			select {
			case p.buf <- value:
				return nil
			default:
			}

			select {
			case <-p.buf:
				p.dropped.Add(1)
				if p.onDrop != nil {
					p.onDrop(p.stream)
				}
			default:
			}
		}
	}

	select {
	case p.buf <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return ErrPipelineStopped
	}
}

// Stop rejects further submissions, lets the worker drain what is pending
// and waits for it to exit.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)

		p.mu.Lock()
		p.stopped = true
		close(p.buf)
		started := p.started
		p.mu.Unlock()

		if started {
			<-p.done
		}
	})
}

// Discard stops the pipeline like Stop but throws pending values away
// instead of observing them.
func (p *Pipeline) Discard() {
	p.discarded.Store(true)
	p.Stop()
}

// Stream returns the stream the pipeline feeds
func (p *Pipeline) Stream() string {
	return p.stream
}

// Pending returns the number of values waiting for the worker
func (p *Pipeline) Pending() int {
	return len(p.buf)
}

// Dropped returns the number of values discarded by drop_oldest
func (p *Pipeline) Dropped() uint64 {
	return p.dropped.Load()
}

// Processed returns the number of values the detector accepted
func (p *Pipeline) Processed() uint64 {
	return p.processed.Load()
}

// Rejected returns the number of values the detector refused
func (p *Pipeline) Rejected() uint64 {
	return p.rejected.Load()
}

// PipelineGroup lazily creates one started pipeline per stream in front of a
// Registry.
type PipelineGroup struct {
	ctx      context.Context
	registry *Registry
	opts     PipelineOptions

	mu        sync.Mutex
	pipelines map[string]*Pipeline
	stopped   bool
}

// NewPipelineGroup creates a group whose workers observe with ctx. The
// pipeline of a stream is removed when the stream is deleted from registry.
func NewPipelineGroup(ctx context.Context, registry *Registry, opts PipelineOptions) *PipelineGroup {
	g := &PipelineGroup{
		ctx:       ctx,
		registry:  registry,
		opts:      opts,
		pipelines: make(map[string]*Pipeline),
	}
	registry.OnDelete(g.Remove)
	return g
}

// Submit routes value to the pipeline of stream. The stream is created in
// the registry first so name and max_streams errors surface to the caller.
func (g *PipelineGroup) Submit(ctx context.Context, stream string, value float64) error {
	p, err := g.pipeline(stream)
	if err != nil {
		return err
	}
	return p.Submit(ctx, value)
}

func (g *PipelineGroup) pipeline(stream string) (*Pipeline, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return nil, ErrPipelineStopped
	}
	if p, ok := g.pipelines[stream]; ok {
		return p, nil
	}

	if _, err := g.registry.GetOrCreate(stream); err != nil {
		return nil, err
	}

	p, err := NewPipeline(stream, g.registry, g.opts)
	if err != nil {
		return nil, err
	}
	p.Start(g.ctx)
	g.pipelines[stream] = p
	return p, nil
}

// Remove stops the pipeline of stream and discards its pending values
func (g *PipelineGroup) Remove(stream string) {
	g.mu.Lock()
	p, ok := g.pipelines[stream]
	delete(g.pipelines, stream)
	g.mu.Unlock()

	if ok {
		p.Discard()
	}
}

// Len returns the number of live pipelines
func (g *PipelineGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pipelines)
}

// Dropped sums drops across all pipelines
func (g *PipelineGroup) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var total uint64
	for _, p := range g.pipelines {
		total += p.Dropped()
	}
	return total
}

// Stop drains and stops every pipeline
func (g *PipelineGroup) Stop() {
	g.mu.Lock()
	g.stopped = true
	pipelines := make([]*Pipeline, 0, len(g.pipelines))
	for _, p := range g.pipelines {
		pipelines = append(pipelines, p)
	}
	g.mu.Unlock()

	for _, p := range pipelines {
		p.Stop()
	}
}
