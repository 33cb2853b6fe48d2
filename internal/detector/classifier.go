package detector

import "math"

// Kind describes the direction of a deviation from the rolling mean.
type Kind string

const (
	KindNone  Kind = ""
	KindSpike Kind = "spike" // above the mean
	KindDrop  Kind = "drop"  // below the mean
)

// Range is the band of values considered normal for the current window.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Classifier applies the deviation threshold to a value against rolling
// statistics.
type Classifier struct {
	Threshold float64
}

// NewClassifier creates a classifier flagging values more than threshold
// standard deviations away from the mean.
func NewClassifier(threshold float64) Classifier {
	return Classifier{Threshold: threshold}
}

// Classify reports whether value is anomalous given stats. Nothing is flagged
// before the window is full. The comparison is strict, so in a flat window
// (stddev 0) any value different from the mean is anomalous.
//
// stats are expected to include value itself, which lets a large outlier pull
// the mean and stddev towards it and dampens detection of borderline points.
func (c Classifier) Classify(value float64, stats Stats) bool {
	if !stats.WindowFull {
		return false
	}
	return math.Abs(value-stats.Mean) > c.Threshold*stats.StdDev
}

// Score returns |value-mean|/stddev, or 0 when stddev is 0.
func (c Classifier) Score(value float64, stats Stats) float64 {
	if stats.StdDev == 0 {
		return 0
	}
	return math.Abs(value-stats.Mean) / stats.StdDev
}

// Expected returns the normal band [mean-k*stddev, mean+k*stddev].
func (c Classifier) Expected(stats Stats) Range {
	return Range{
		Min: stats.Mean - c.Threshold*stats.StdDev,
		Max: stats.Mean + c.Threshold*stats.StdDev,
	}
}

// KindOf returns the direction of value relative to the mean.
func KindOf(value float64, stats Stats) Kind {
	switch {
	case value > stats.Mean:
		return KindSpike
	case value < stats.Mean:
		return KindDrop
	default:
		return KindNone
	}
}
