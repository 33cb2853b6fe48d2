package detector

import (
	"fmt"
	"math"
	"time"
)

// Verdict is the classification of one observed value.
type Verdict struct {
	Seq        uint64  `json:"seq"`
	Value      float64 `json:"value"`
	IsAnomaly  bool    `json:"is_anomaly"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stddev"`
	WindowFull bool    `json:"window_full"`
	Score      float64 `json:"score"`
	Kind       Kind    `json:"kind,omitempty"`
	Expected   *Range  `json:"expected,omitempty"`
}

// StreamDetector composes a HistoryBuffer, RollingStatistics and a Classifier
// into a single Observe operation for one ordered stream of values.
//
// A StreamDetector is not safe for concurrent use. Observe must be called
// sequentially; independent streams need independent detectors.
type StreamDetector struct {
	cfg        Config
	history    *HistoryBuffer
	rolling    *RollingStatistics
	classifier Classifier
	seq        uint64
}

// New creates a detector, failing with ErrInvalidConfig if cfg is invalid.
func New(cfg Config) (*StreamDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StreamDetector{
		cfg:        cfg,
		history:    NewHistoryBuffer(cfg.Capacity),
		rolling:    NewRollingStatistics(cfg.WindowSize, cfg.SampleStdDev),
		classifier: NewClassifier(cfg.Threshold),
	}, nil
}

// Observe ingests value stamped with the current time. See ObserveAt.
func (d *StreamDetector) Observe(value float64) (Verdict, error) {
	return d.ObserveAt(value, time.Now().UTC())
}

// ObserveAt ingests value recorded at at and returns its verdict. NaN and
// infinite values are rejected with ErrNonFiniteValue and leave the detector
// unchanged.
func (d *StreamDetector) ObserveAt(value float64, at time.Time) (Verdict, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Verdict{}, fmt.Errorf("%w: %v", ErrNonFiniteValue, value)
	}

	d.seq++
	d.history.Push(Measurement{Seq: d.seq, Value: value, ObservedAt: at})
	stats := d.rolling.Update(value)

	v := Verdict{
		Seq:        d.seq,
		Value:      value,
		IsAnomaly:  d.classifier.Classify(value, stats),
		Mean:       stats.Mean,
		StdDev:     stats.StdDev,
		WindowFull: stats.WindowFull,
	}
	if v.WindowFull {
		v.Score = d.classifier.Score(value, stats)
		expected := d.classifier.Expected(stats)
		v.Expected = &expected
	}
	if v.IsAnomaly {
		v.Kind = KindOf(value, stats)
	}
	return v, nil
}

// Snapshot returns the retained history, oldest first.
func (d *StreamDetector) Snapshot() []Measurement {
	return d.history.Snapshot()
}

// Tail returns the newest n retained measurements, oldest first.
func (d *StreamDetector) Tail(n int) []Measurement {
	return d.history.Tail(n)
}

// Stats returns the current rolling window statistics.
func (d *StreamDetector) Stats() Stats {
	return d.rolling.Current()
}

// Observed returns the number of accepted values.
func (d *StreamDetector) Observed() uint64 {
	return d.seq
}

// Config returns the detector configuration.
func (d *StreamDetector) Config() Config {
	return d.cfg
}
