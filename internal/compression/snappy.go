package compression

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// DefaultMaxDecodedSize bounds a decoded queue payload. Anomaly events and
// measurement batches are a few KiB at most.
const DefaultMaxDecodedSize = 4 << 20

// ErrPayloadTooLarge is returned when a block would decode past the limit
var ErrPayloadTooLarge = errors.New("decoded payload too large")

// SnappyCompressor wraps payloads in the Snappy block format and refuses to
// decode blocks whose header announces more than maxDecoded bytes.
type SnappyCompressor struct {
	maxDecoded int
}

// NewSnappyCompressor creates a compressor with DefaultMaxDecodedSize
func NewSnappyCompressor() *SnappyCompressor {
	return NewSnappyCompressorWithLimit(DefaultMaxDecodedSize)
}

// NewSnappyCompressorWithLimit creates a compressor decoding at most limit
// bytes per payload; limit <= 0 disables the check.
func NewSnappyCompressorWithLimit(limit int) *SnappyCompressor {
	return &SnappyCompressor{maxDecoded: limit}
}

func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decompress checks the announced length before allocating the output
func (s *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	if s.maxDecoded > 0 && n > s.maxDecoded {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, n, s.maxDecoded)
	}

	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return out, nil
}

func (s *SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
