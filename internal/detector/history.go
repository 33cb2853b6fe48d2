package detector

// HistoryBuffer keeps the most recent measurements in insertion order.
// When full, pushing a new measurement evicts the oldest one.
type HistoryBuffer struct {
	data []Measurement
	head int // next write position
	size int
}

// NewHistoryBuffer creates a buffer holding at most capacity measurements.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryBuffer{
		data: make([]Measurement, capacity),
	}
}

// Push appends m. If the buffer was full, the evicted measurement is returned
// with ok set to true.
func (b *HistoryBuffer) Push(m Measurement) (evicted Measurement, ok bool) {
	if b.size == len(b.data) {
		evicted, ok = b.data[b.head], true
	} else {
		b.size++
	}
	b.data[b.head] = m
	b.head = (b.head + 1) % len(b.data)
	return evicted, ok
}

// Snapshot returns a copy of the buffered measurements, oldest first.
func (b *HistoryBuffer) Snapshot() []Measurement {
	out := make([]Measurement, b.size)
	start := (b.head - b.size + len(b.data)) % len(b.data)
	for i := 0; i < b.size; i++ {
		out[i] = b.data[(start+i)%len(b.data)]
	}
	return out
}

// Tail returns a copy of the newest n measurements, oldest first.
func (b *HistoryBuffer) Tail(n int) []Measurement {
	if n <= 0 || n >= b.size {
		return b.Snapshot()
	}
	out := make([]Measurement, n)
	start := (b.head - n + len(b.data)) % len(b.data)
	for i := 0; i < n; i++ {
		out[i] = b.data[(start+i)%len(b.data)]
	}
	return out
}

// Len returns the number of buffered measurements.
func (b *HistoryBuffer) Len() int {
	return b.size
}

// Cap returns the maximum number of measurements the buffer holds.
func (b *HistoryBuffer) Cap() int {
	return len(b.data)
}
