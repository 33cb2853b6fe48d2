package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryBuffer_PushWithinCapacity(t *testing.T) {
	b := NewHistoryBuffer(3)

	_, ok := b.Push(Measurement{Seq: 1, Value: 10})
	assert.False(t, ok)
	_, ok = b.Push(Measurement{Seq: 2, Value: 20})
	assert.False(t, ok)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 3, b.Cap())
	assert.Equal(t, []Measurement{{Seq: 1, Value: 10}, {Seq: 2, Value: 20}}, b.Snapshot())
}

func TestHistoryBuffer_EvictsOldest(t *testing.T) {
	b := NewHistoryBuffer(3)
	for i := 1; i <= 3; i++ {
		b.Push(Measurement{Seq: uint64(i), Value: float64(i)})
	}

	evicted, ok := b.Push(Measurement{Seq: 4, Value: 4})
	assert.True(t, ok)
	assert.Equal(t, Measurement{Seq: 1, Value: 1}, evicted)

	evicted, ok = b.Push(Measurement{Seq: 5, Value: 5})
	assert.True(t, ok)
	assert.Equal(t, uint64(2), evicted.Seq)

	assert.Equal(t, []Measurement{{Seq: 3, Value: 3}, {Seq: 4, Value: 4}, {Seq: 5, Value: 5}}, b.Snapshot())
}

func TestHistoryBuffer_LengthNeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 100} {
		b := NewHistoryBuffer(capacity)
		for i := 1; i <= capacity*3+1; i++ {
			b.Push(Measurement{Seq: uint64(i), Value: float64(i)})
			if b.Len() > capacity {
				t.Fatalf("capacity %d: length %d after %d pushes", capacity, b.Len(), i)
			}
		}
		assert.Equal(t, capacity, b.Len())
	}
}

func TestHistoryBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewHistoryBuffer(2)
	b.Push(Measurement{Seq: 1, Value: 1})

	snap := b.Snapshot()
	snap[0].Value = 99

	assert.Equal(t, 1.0, b.Snapshot()[0].Value)
}

func TestHistoryBuffer_Tail(t *testing.T) {
	b := NewHistoryBuffer(4)
	for i := 1; i <= 6; i++ {
		b.Push(Measurement{Seq: uint64(i), Value: float64(i)})
	}

	assert.Equal(t, []Measurement{{Seq: 5, Value: 5}, {Seq: 6, Value: 6}}, b.Tail(2))
	assert.Equal(t, b.Snapshot(), b.Tail(0))
	assert.Equal(t, b.Snapshot(), b.Tail(10))
}

func TestHistoryBuffer_EmptySnapshot(t *testing.T) {
	b := NewHistoryBuffer(5)
	assert.Empty(t, b.Snapshot())
}
