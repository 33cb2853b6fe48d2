package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_StartupPolicy(t *testing.T) {
	c := NewClassifier(3)
	stats := Stats{Mean: 100, StdDev: 1, Count: 50, WindowFull: false}

	assert.False(t, c.Classify(1e6, stats))
}

func TestClassifier_Threshold(t *testing.T) {
	c := NewClassifier(3)
	stats := Stats{Mean: 100, StdDev: 10, Count: 100, WindowFull: true}

	tests := []struct {
		value float64
		want  bool
	}{
		{100, false},
		{129.9, false},
		{130, false}, // exactly on the threshold is not anomalous
		{130.1, true},
		{69.9, true},
		{70, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.value, stats), "value %v", tt.value)
	}
}

func TestClassifier_FlatWindow(t *testing.T) {
	c := NewClassifier(3)
	stats := Stats{Mean: 5, StdDev: 0, Count: 100, WindowFull: true}

	assert.False(t, c.Classify(5, stats))
	assert.True(t, c.Classify(5.000001, stats))
	assert.True(t, c.Classify(4.999999, stats))
	assert.Equal(t, 0.0, c.Score(6, stats))
}

func TestClassifier_ScoreAndExpected(t *testing.T) {
	c := NewClassifier(2)
	stats := Stats{Mean: 10, StdDev: 4, Count: 20, WindowFull: true}

	assert.InDelta(t, 1.5, c.Score(4, stats), 1e-12)
	assert.Equal(t, Range{Min: 2, Max: 18}, c.Expected(stats))
}

func TestKindOf(t *testing.T) {
	stats := Stats{Mean: 10}

	assert.Equal(t, KindSpike, KindOf(11, stats))
	assert.Equal(t, KindDrop, KindOf(9, stats))
	assert.Equal(t, KindNone, KindOf(10, stats))
}
