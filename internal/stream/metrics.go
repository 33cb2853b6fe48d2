package stream

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soltixdb/streamwatch/internal/detector"
)

const metricsNamespace = "streamwatch"

// MetricsSink exports per-stream Prometheus metrics
type MetricsSink struct {
	observations *prometheus.CounterVec
	anomalies    *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	mean         *prometheus.GaugeVec
	stddev       *prometheus.GaugeVec
	windowFull   *prometheus.GaugeVec
}

// NewMetricsSink creates the collectors and registers them with reg
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	m := &MetricsSink{
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "observations_total",
			Help:      "Values accepted per stream.",
		}, []string{"stream"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "anomalies_total",
			Help:      "Values flagged as anomalous per stream and kind.",
		}, []string{"stream", "kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_dropped_total",
			Help:      "Pending values discarded by the drop_oldest overflow policy.",
		}, []string{"stream"}),
		mean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rolling_mean",
			Help:      "Rolling mean of the stream window.",
		}, []string{"stream"}),
		stddev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rolling_stddev",
			Help:      "Rolling standard deviation of the stream window.",
		}, []string{"stream"}),
		windowFull: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "window_full",
			Help:      "1 once the stream window holds window_size values.",
		}, []string{"stream"}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsSink) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.observations, m.anomalies, m.dropped, m.mean, m.stddev, m.windowFull}
}

// Emit implements Sink
func (m *MetricsSink) Emit(_ context.Context, stream string, v detector.Verdict) error {
	m.observations.WithLabelValues(stream).Inc()
	if v.IsAnomaly {
		m.anomalies.WithLabelValues(stream, string(v.Kind)).Inc()
	}

	m.mean.WithLabelValues(stream).Set(v.Mean)
	m.stddev.WithLabelValues(stream).Set(v.StdDev)
	full := 0.0
	if v.WindowFull {
		full = 1
	}
	m.windowFull.WithLabelValues(stream).Set(full)
	return nil
}

// RecordDropped counts values discarded before reaching a stream
func (m *MetricsSink) RecordDropped(stream string) {
	m.dropped.WithLabelValues(stream).Inc()
}

// Forget removes every series of a deleted stream
func (m *MetricsSink) Forget(stream string) {
	labels := prometheus.Labels{"stream": stream}
	m.observations.DeletePartialMatch(labels)
	m.anomalies.DeletePartialMatch(labels)
	m.dropped.DeletePartialMatch(labels)
	m.mean.DeletePartialMatch(labels)
	m.stddev.DeletePartialMatch(labels)
	m.windowFull.DeletePartialMatch(labels)
}
