// Package detector implements streaming anomaly detection over a single
// sequence of scalar measurements with bounded memory.
package detector

import "time"

// Measurement is a single ingested value together with its position in the
// ingestion order. Seq starts at 1 and increases by one per accepted value.
type Measurement struct {
	Seq        uint64    `json:"seq"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}
