package main

import (
	"fmt"
	"io"
	"math"

	"github.com/montanaflynn/stats"
)

type summary struct {
	Count     int
	Anomalies int
	Skipped   int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	MaxScore  float64

	// Quantiles cover only the retained tail of the series
	TailLen    int
	TailMedian float64
	TailP99    float64
}

// summarize reports whole-series moments from the running aggregates and
// quantiles of the retained tail.
func summarize(r replayResult) summary {
	s := summary{
		Count:     r.count,
		Anomalies: r.anomalies,
		Skipped:   r.skipped,
		MaxScore:  r.maxScore,
		TailLen:   len(r.tail),
	}
	if r.count == 0 {
		return s
	}
	s.Mean = r.mean
	s.StdDev = math.Sqrt(r.m2 / float64(r.count))
	s.Min = r.min
	s.Max = r.max

	if len(r.tail) > 0 {
		tail := stats.Float64Data(r.tail)
		s.TailMedian, _ = tail.Median()
		s.TailP99, _ = tail.Percentile(99)
	}
	return s
}

func printSummary(w io.Writer, s summary) {
	_, _ = fmt.Fprintf(w, "\n=== Replay Summary ===\n")
	_, _ = fmt.Fprintf(w, "  Values:    %d\n", s.Count)
	_, _ = fmt.Fprintf(w, "  Anomalies: %d\n", s.Anomalies)
	if s.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "  Skipped:   %d (non-finite)\n", s.Skipped)
	}
	if s.Count == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "  Mean:      %.4f\n", s.Mean)
	_, _ = fmt.Fprintf(w, "  StdDev:    %.4f\n", s.StdDev)
	_, _ = fmt.Fprintf(w, "  Min/Max:   %.4f / %.4f\n", s.Min, s.Max)
	_, _ = fmt.Fprintf(w, "  Max score: %.4f\n", s.MaxScore)
	_, _ = fmt.Fprintf(w, "  Last %d values: median %.4f, p99 %.4f\n", s.TailLen, s.TailMedian, s.TailP99)
}
