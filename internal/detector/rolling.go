package detector

import "math"

// Stats is a point-in-time view of the rolling window.
type Stats struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stddev"`
	Count      int     `json:"count"`
	WindowFull bool    `json:"window_full"`
}

// RollingStatistics maintains mean and standard deviation over the trailing
// windowSize values using a sliding Welford accumulator. Each update is O(1):
// while the window grows a value is added, once it is full the oldest value's
// contribution is replaced by the new one in a single step.
//
// Replacement steps accumulate rounding error, so the aggregates are rebuilt
// from the ring once every windowSize replacements (amortized O(1)). A window
// holding one repeated value is pinned to that value with zero variance.
type RollingStatistics struct {
	window []float64
	head   int // next write position, also the oldest value once full
	n      int
	mean   float64
	m2     float64 // sum of squared deviations from mean
	sample bool    // use n-1 as the variance denominator

	replaced int     // replacements since the last rebuild
	last     float64 // most recent value
	run      int     // consecutive copies of last at the end of the window
}

// NewRollingStatistics creates an accumulator over the last windowSize values.
// With sample set, variance is divided by n-1 instead of n.
func NewRollingStatistics(windowSize int, sample bool) *RollingStatistics {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &RollingStatistics{
		window: make([]float64, windowSize),
		sample: sample,
	}
}

// Update ingests value and returns the statistics of the window including it.
func (r *RollingStatistics) Update(value float64) Stats {
	if r.n > 0 && value == r.last {
		r.run++
	} else {
		r.run = 1
	}
	r.last = value

	full := r.n == len(r.window)
	if !full {
		r.n++
		delta := value - r.mean
		r.mean += delta / float64(r.n)
		r.m2 += delta * (value - r.mean)
	} else {
		old := r.window[r.head]
		oldMean := r.mean
		r.mean += (value - old) / float64(r.n)
		r.m2 += (value - old) * (value - r.mean + old - oldMean)
	}

	r.window[r.head] = value
	r.head = (r.head + 1) % len(r.window)

	switch {
	case r.run >= r.n:
		r.mean = value
		r.m2 = 0
		r.replaced = 0
	case full:
		r.replaced++
		if r.replaced >= len(r.window) || r.m2 < 0 {
			r.rebuild()
		}
	}
	if r.m2 < 0 {
		r.m2 = 0
	}

	return r.Current()
}

// rebuild recomputes mean and m2 from the ring with a fresh Welford pass
func (r *RollingStatistics) rebuild() {
	start := (r.head - r.n + len(r.window)) % len(r.window)
	var mean, m2 float64
	for i := 0; i < r.n; i++ {
		v := r.window[(start+i)%len(r.window)]
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	r.mean = mean
	r.m2 = m2
	r.replaced = 0
}

// Current returns the statistics of the window without modifying it.
func (r *RollingStatistics) Current() Stats {
	return Stats{
		Mean:       r.mean,
		StdDev:     r.stdDev(),
		Count:      r.n,
		WindowFull: r.n == len(r.window),
	}
}

// Values returns the values currently in the window, oldest first.
func (r *RollingStatistics) Values() []float64 {
	out := make([]float64, r.n)
	start := (r.head - r.n + len(r.window)) % len(r.window)
	for i := 0; i < r.n; i++ {
		out[i] = r.window[(start+i)%len(r.window)]
	}
	return out
}

// Size returns the configured window size.
func (r *RollingStatistics) Size() int {
	return len(r.window)
}

func (r *RollingStatistics) stdDev() float64 {
	if r.n < 2 {
		return 0
	}
	denom := float64(r.n)
	if r.sample {
		denom = float64(r.n - 1)
	}
	variance := r.m2 / denom
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
