package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/ingest"
)

type options struct {
	column        string
	output        string
	capacity      int
	window        int
	threshold     float64
	sample        bool
	anomaliesOnly bool
	quiet         bool
}

var opts options

var verdictHeader = []string{"seq", "value", "mean", "stddev", "window_full", "is_anomaly", "score", "kind"}

func runReplay(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	out := cmd.OutOrStdout()
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	d, err := detector.New(detector.Config{
		Capacity:     opts.capacity,
		WindowSize:   opts.window,
		Threshold:    opts.threshold,
		SampleStdDev: opts.sample,
	})
	if err != nil {
		return err
	}

	result, err := replay(cmd.Context(), ingest.NewCSVSource(in, opts.column), d, out, opts.anomaliesOnly)
	if err != nil {
		return err
	}

	if !opts.quiet {
		printSummary(cmd.ErrOrStderr(), summarize(result))
	}
	return nil
}

// replayResult holds running aggregates of the replayed series, so memory
// stays bounded by the detector capacity whatever the input length.
type replayResult struct {
	count     int
	anomalies int
	skipped   int
	mean      float64
	m2        float64
	min       float64
	max       float64
	maxScore  float64
	tail      []float64 // values still in the detector history
}

func (r *replayResult) add(v detector.Verdict) {
	r.count++
	if r.count == 1 {
		r.min, r.max = v.Value, v.Value
	}
	r.min = math.Min(r.min, v.Value)
	r.max = math.Max(r.max, v.Value)

	delta := v.Value - r.mean
	r.mean += delta / float64(r.count)
	r.m2 += delta * (v.Value - r.mean)

	if v.WindowFull {
		r.maxScore = math.Max(r.maxScore, v.Score)
	}
	if v.IsAnomaly {
		r.anomalies++
	}
}

// replay classifies every value of src and writes one CSV row per verdict.
// Non-finite values are counted and skipped.
func replay(ctx context.Context, src ingest.Source, d *detector.StreamDetector, out io.Writer, anomaliesOnly bool) (replayResult, error) {
	var result replayResult

	writer := csv.NewWriter(out)
	if err := writer.Write(verdictHeader); err != nil {
		return result, fmt.Errorf("failed to write header: %w", err)
	}

	for {
		value, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		v, err := d.Observe(value)
		if errors.Is(err, detector.ErrNonFiniteValue) {
			result.skipped++
			continue
		}
		if err != nil {
			return result, err
		}

		result.add(v)
		if anomaliesOnly && !v.IsAnomaly {
			continue
		}
		if err := writer.Write(verdictRow(v)); err != nil {
			return result, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return result, fmt.Errorf("failed to flush output: %w", err)
	}

	for _, m := range d.Snapshot() {
		result.tail = append(result.tail, m.Value)
	}
	return result, nil
}

func verdictRow(v detector.Verdict) []string {
	return []string{
		strconv.FormatUint(v.Seq, 10),
		formatFloat(v.Value),
		formatFloat(v.Mean),
		formatFloat(v.StdDev),
		strconv.FormatBool(v.WindowFull),
		strconv.FormatBool(v.IsAnomaly),
		formatFloat(v.Score),
		string(v.Kind),
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
