package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/soltixdb/streamwatch/internal/ingest"
)

func newTestDetector(t *testing.T) *detector.StreamDetector {
	t.Helper()
	d, err := detector.New(detector.Config{Capacity: 40, WindowSize: 20, Threshold: 3})
	require.NoError(t, err)
	return d
}

// spikeSeries is 19 alternating values, a spike, then one normal value.
func spikeSeries() string {
	var b strings.Builder
	b.WriteString("timestamp,value\n")
	for i := 0; i < 19; i++ {
		if i%2 == 0 {
			b.WriteString("t,10\n")
		} else {
			b.WriteString("t,11\n")
		}
	}
	b.WriteString("t,100\nt,10\n")
	return b.String()
}

func TestReplayWritesVerdictRows(t *testing.T) {
	var out bytes.Buffer
	src := ingest.NewCSVSource(strings.NewReader(spikeSeries()), "value")

	result, err := replay(context.Background(), src, newTestDetector(t), &out, false)
	require.NoError(t, err)
	assert.Equal(t, 21, result.count)
	assert.Equal(t, 1, result.anomalies)
	assert.Greater(t, result.maxScore, 3.0)
	assert.Len(t, result.tail, 21)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 22)
	assert.Equal(t, verdictHeader, rows[0])

	spike := rows[20]
	assert.Equal(t, "20", spike[0])
	assert.Equal(t, "100", spike[1])
	assert.Equal(t, "true", spike[4])
	assert.Equal(t, "true", spike[5])
	assert.Equal(t, "spike", spike[7])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "false", first[4])
	assert.Equal(t, "0", first[6])
}

func TestReplayAnomaliesOnly(t *testing.T) {
	var out bytes.Buffer
	src := ingest.NewCSVSource(strings.NewReader(spikeSeries()), "value")

	_, err := replay(context.Background(), src, newTestDetector(t), &out, true)
	require.NoError(t, err)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "20", rows[1][0])
}

func TestReplaySkipsNonFinite(t *testing.T) {
	var out bytes.Buffer
	src := ingest.NewCSVSource(strings.NewReader("1\nNaN\n2\n+Inf\n3\n"), "")

	result, err := replay(context.Background(), src, newTestDetector(t), &out, false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.count)
	assert.Equal(t, []float64{1, 2, 3}, result.tail)
	assert.Equal(t, 2, result.skipped)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "3", rows[3][0], "skipped values do not consume sequence numbers")
}

func TestReplayInvalidInput(t *testing.T) {
	var out bytes.Buffer
	src := ingest.NewCSVSource(strings.NewReader("1\nabc\n"), "")

	_, err := replay(context.Background(), src, newTestDetector(t), &out, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestSummarize(t *testing.T) {
	d, err := detector.New(detector.Config{Capacity: 8, WindowSize: 2, Threshold: 3})
	require.NoError(t, err)
	src := ingest.NewSliceSource([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	result, err := replay(context.Background(), src, d, io.Discard, false)
	require.NoError(t, err)
	s := summarize(result)

	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.StdDev, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 8, s.TailLen)
	assert.InDelta(t, 4.5, s.TailMedian, 1e-9)
}

func TestSummarize_TailIsBoundedByCapacity(t *testing.T) {
	d, err := detector.New(detector.Config{Capacity: 4, WindowSize: 2, Threshold: 3})
	require.NoError(t, err)
	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}

	result, err := replay(context.Background(), ingest.NewSliceSource(values), d, io.Discard, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{996, 997, 998, 999}, result.tail)

	s := summarize(result)
	assert.Equal(t, 1000, s.Count)
	assert.InDelta(t, 499.5, s.Mean, 1e-9)
	assert.Equal(t, 999.0, s.Max)
}

func TestSummarizeEmpty(t *testing.T) {
	s := summarize(replayResult{})
	assert.Zero(t, s.Count)

	var buf bytes.Buffer
	printSummary(&buf, s)
	assert.Contains(t, buf.String(), "Values:    0")
	assert.NotContains(t, buf.String(), "Mean")
}
