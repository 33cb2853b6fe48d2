package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Float is a measurement value. Besides JSON numbers it accepts the strings
// "NaN", "Inf", "+Inf" and "-Inf", which plain JSON cannot carry, so that
// non-finite input reaches validation instead of failing as a parse error.
type Float float64

// UnmarshalJSON implements json.Unmarshaler
func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "nan":
			*f = Float(math.NaN())
		case "inf", "+inf", "infinity", "+infinity":
			*f = Float(math.Inf(1))
		case "-inf", "-infinity":
			*f = Float(math.Inf(-1))
		default:
			return fmt.Errorf("invalid measurement value %q", s)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ObserveRequest represents a single measurement submission
type ObserveRequest struct {
	Value *Float `json:"value"`
}

// ObserveBatchRequest represents an ordered batch of measurements for one stream
type ObserveBatchRequest struct {
	Values []Float `json:"values"`
}

// MeasurementMessage is the queue payload carrying measurements. Stream may
// be empty, in which case the consumer's default stream is used.
type MeasurementMessage struct {
	Stream string  `json:"stream,omitempty"`
	Value  *Float  `json:"value,omitempty"`
	Values []Float `json:"values,omitempty"`
}

// Floats converts a slice of Float to float64
func Floats(values []Float) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
