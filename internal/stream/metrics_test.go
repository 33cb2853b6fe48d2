package stream

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/soltixdb/streamwatch/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func seriesCount(t *testing.T, reg *prometheus.Registry, stream string) int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	count := 0
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "stream" && lp.GetValue() == stream {
					count++
				}
			}
		}
	}
	return count
}

func TestMetricsSink_Emit(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Emit(ctx, "cpu", detector.Verdict{Seq: 1, Value: 5, Mean: 5}))
	require.NoError(t, m.Emit(ctx, "cpu", anomalyVerdict()))

	assert.Equal(t, 2.0, counterValue(t, m.observations.WithLabelValues("cpu")))
	assert.Equal(t, 1.0, counterValue(t, m.anomalies.WithLabelValues("cpu", "spike")))
	assert.Equal(t, 109.0, gaugeValue(t, m.mean.WithLabelValues("cpu")))
	assert.Equal(t, 89.55, gaugeValue(t, m.stddev.WithLabelValues("cpu")))
	assert.Equal(t, 1.0, gaugeValue(t, m.windowFull.WithLabelValues("cpu")))

	m.RecordDropped("cpu")
	assert.Equal(t, 1.0, counterValue(t, m.dropped.WithLabelValues("cpu")))
}

func TestMetricsSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsSink(reg)
	require.NoError(t, err)

	_, err = NewMetricsSink(reg)
	assert.Error(t, err)
}

func TestMetricsSink_ForgetOnDelete(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsSink(reg)
	require.NoError(t, err)

	r := newTestRegistry(t, 0, m)
	ctx := context.Background()
	_, err = r.Observe(ctx, "cpu", 1)
	require.NoError(t, err)
	_, err = r.Observe(ctx, "mem", 1)
	require.NoError(t, err)

	assert.Positive(t, seriesCount(t, reg, "cpu"))

	require.NoError(t, r.Delete("cpu"))
	assert.Zero(t, seriesCount(t, reg, "cpu"))
	assert.Positive(t, seriesCount(t, reg, "mem"))
}
