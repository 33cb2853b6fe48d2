// Package stream keeps one anomaly detector per named measurement stream and
// fans every verdict out to the configured sinks.
package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/logging"
)

const maxStreamNameLength = 128

// Options configures a Registry
type Options struct {
	Detector   detector.Config
	MaxStreams int // 0 means unbounded
	Sinks      []Sink
	Logger     *logging.Logger
}

// Info summarises a stream for listings
type Info struct {
	Name           string          `json:"name"`
	Stats          detector.Stats  `json:"stats"`
	Observed       uint64          `json:"observed"`
	Retained       int             `json:"retained"`
	Anomalies      uint64          `json:"anomalies"`
	Config         detector.Config `json:"config"`
	CreatedAt      time.Time       `json:"created_at"`
	LastObservedAt *time.Time      `json:"last_observed_at,omitempty"`
}

// Snapshot is the retained history of a stream, oldest first, together with
// the sequence numbers of the retained points that were flagged.
type Snapshot struct {
	Stream       string                 `json:"stream"`
	Measurements []detector.Measurement `json:"measurements"`
	Anomalies    []uint64               `json:"anomalies"`
	Stats        detector.Stats         `json:"stats"`
}

// Stream is a single named detector. All methods are safe for concurrent
// use; observations on one stream are applied one at a time.
type Stream struct {
	name string
	mu   sync.Mutex
	det  *detector.StreamDetector

	// Sequence numbers of anomalous points still in history, ascending
	flagged      []uint64
	anomalyCount uint64
	createdAt    time.Time
	lastObserved time.Time
}

func newStream(name string, cfg detector.Config) (*Stream, error) {
	det, err := detector.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Stream{
		name:      name,
		det:       det,
		createdAt: time.Now().UTC(),
	}, nil
}

// Name returns the stream name
func (s *Stream) Name() string {
	return s.name
}

// observe must be called with s.mu held
func (s *Stream) observe(value float64) (detector.Verdict, error) {
	now := time.Now().UTC()
	v, err := s.det.ObserveAt(value, now)
	if err != nil {
		return v, err
	}

	s.lastObserved = now
	if v.IsAnomaly {
		s.anomalyCount++
		s.flagged = append(s.flagged, v.Seq)
	}

	// Forget flags whose points were evicted from history
	observed := s.det.Observed()
	capacity := uint64(s.det.Config().Capacity)
	if observed > capacity {
		oldest := observed - capacity + 1
		drop := 0
		for drop < len(s.flagged) && s.flagged[drop] < oldest {
			drop++
		}
		if drop > 0 {
			s.flagged = append(s.flagged[:0], s.flagged[drop:]...)
		}
	}

	return v, nil
}

func (s *Stream) retained() int {
	observed := s.det.Observed()
	if capacity := uint64(s.det.Config().Capacity); observed > capacity {
		return int(capacity)
	}
	return int(observed)
}

// Info returns the current stream summary
func (s *Stream) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		Name:      s.name,
		Stats:     s.det.Stats(),
		Observed:  s.det.Observed(),
		Retained:  s.retained(),
		Anomalies: s.anomalyCount,
		Config:    s.det.Config(),
		CreatedAt: s.createdAt,
	}
	if !s.lastObserved.IsZero() {
		last := s.lastObserved
		info.LastObservedAt = &last
	}
	return info
}

// Snapshot returns the last limit retained points, or all of them when limit <= 0
func (s *Stream) Snapshot(limit int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var points []detector.Measurement
	if limit > 0 {
		points = s.det.Tail(limit)
	} else {
		points = s.det.Snapshot()
	}

	snap := Snapshot{
		Stream:       s.name,
		Measurements: points,
		Anomalies:    []uint64{},
		Stats:        s.det.Stats(),
	}
	if len(points) == 0 {
		return snap
	}

	first := points[0].Seq
	for _, seq := range s.flagged {
		if seq >= first {
			snap.Anomalies = append(snap.Anomalies, seq)
		}
	}
	return snap
}

// Registry owns the set of named streams
type Registry struct {
	cfg        detector.Config
	maxStreams int
	sinks      []Sink
	logger     *logging.Logger

	mu          sync.RWMutex
	streams     map[string]*Stream
	deleteHooks []func(name string)
}

// NewRegistry creates a registry. The detector configuration is validated
// up front so stream creation cannot fail on configuration later.
func NewRegistry(opts Options) (*Registry, error) {
	if err := opts.Detector.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxStreams < 0 {
		return nil, fmt.Errorf("max streams must not be negative: %d", opts.MaxStreams)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Global()
	}

	return &Registry{
		cfg:        opts.Detector,
		maxStreams: opts.MaxStreams,
		sinks:      opts.Sinks,
		logger:     logger.With("component", "stream_registry"),
		streams:    make(map[string]*Stream),
	}, nil
}

// ValidateStreamName checks that name is 1..128 characters of [A-Za-z0-9_.-]
func ValidateStreamName(name string) error {
	if name == "" || len(name) > maxStreamNameLength {
		return fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidStreamName, maxStreamNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidStreamName, name, r)
		}
	}
	return nil
}

// GetOrCreate returns the named stream, creating it on first use
func (r *Registry) GetOrCreate(name string) (*Stream, error) {
	r.mu.RLock()
	s, ok := r.streams[name]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	if err := ValidateStreamName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[name]; ok {
		return s, nil
	}
	if r.maxStreams > 0 && len(r.streams) >= r.maxStreams {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyStreams, r.maxStreams)
	}

	s, err := newStream(name, r.cfg)
	if err != nil {
		return nil, err
	}
	r.streams[name] = s

	r.logger.Info("Stream created", "stream", name, "streams", len(r.streams))
	return s, nil
}

// Get returns an existing stream
func (r *Registry) Get(name string) (*Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, name)
	}
	return s, nil
}

// List returns a summary of every stream, sorted by name
func (r *Registry) List() []Info {
	r.mu.RLock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(streams))
	for _, s := range streams {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Len returns the number of tracked streams
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// OnDelete registers fn to run when a stream is deleted. Hooks run before
// the stream leaves the registry, without any registry lock held.
func (r *Registry) OnDelete(fn func(name string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteHooks = append(r.deleteHooks, fn)
}

// Delete drops a stream and all of its state
func (r *Registry) Delete(name string) error {
	r.mu.RLock()
	_, ok := r.streams[name]
	hooks := r.deleteHooks
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, name)
	}

	for _, fn := range hooks {
		fn(name)
	}

	r.mu.Lock()
	_, ok = r.streams[name]
	delete(r.streams, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, name)
	}

	for _, sink := range r.sinks {
		if f, ok := sink.(Forgetter); ok {
			f.Forget(name)
		}
	}

	r.logger.Info("Stream deleted", "stream", name)
	return nil
}

// Observe feeds one value to the named stream, creating the stream if needed
func (r *Registry) Observe(ctx context.Context, name string, value float64) (detector.Verdict, error) {
	s, err := r.GetOrCreate(name)
	if err != nil {
		return detector.Verdict{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.observe(value)
	if err != nil {
		return v, err
	}
	r.emit(ctx, name, v)
	return v, nil
}

// ObserveBatch feeds values in order and stops at the first rejected value.
// The verdicts of the values accepted before it are returned together with a
// *BatchError carrying its index.
func (r *Registry) ObserveBatch(ctx context.Context, name string, values []float64) ([]detector.Verdict, error) {
	s, err := r.GetOrCreate(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	verdicts := make([]detector.Verdict, 0, len(values))
	for i, value := range values {
		if err := ctx.Err(); err != nil {
			return verdicts, &BatchError{Index: i, Err: err}
		}
		v, err := s.observe(value)
		if err != nil {
			return verdicts, &BatchError{Index: i, Err: err}
		}
		r.emit(ctx, name, v)
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// emit runs under the stream lock so sinks see a stream's verdicts in order
func (r *Registry) emit(ctx context.Context, name string, v detector.Verdict) {
	for _, sink := range r.sinks {
		if err := sink.Emit(ctx, name, v); err != nil {
			r.logger.Warn("Sink failed", "stream", name, "seq", v.Seq, "error", err)
		}
	}
}
