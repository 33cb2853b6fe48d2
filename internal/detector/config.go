package detector

import (
	"fmt"
	"math"
)

const (
	DefaultCapacity   = 3600 // one hour of one-second ticks
	DefaultWindowSize = 100
	DefaultThreshold  = 3.0
)

// Config holds detector sizing and sensitivity.
type Config struct {
	// Capacity is the number of measurements kept for display.
	Capacity int `json:"capacity"`

	// WindowSize is the number of trailing values used for mean/stddev.
	WindowSize int `json:"window_size"`

	// Threshold is the number of standard deviations a value may deviate
	// from the mean before it is flagged.
	Threshold float64 `json:"threshold"`

	// SampleStdDev divides variance by n-1 instead of n.
	SampleStdDev bool `json:"sample_stddev"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		WindowSize: DefaultWindowSize,
		Threshold:  DefaultThreshold,
	}
}

// Validate checks the config against the detector invariants.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.WindowSize > c.Capacity {
		return fmt.Errorf("%w: window_size (%d) cannot exceed capacity (%d)", ErrInvalidConfig, c.WindowSize, c.Capacity)
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be a positive finite number, got %v", ErrInvalidConfig, c.Threshold)
	}
	return nil
}
