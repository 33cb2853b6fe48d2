package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamNotFound is returned when a named stream does not exist
	ErrStreamNotFound = errors.New("stream not found")

	// ErrTooManyStreams is returned when creating a stream would exceed max_streams
	ErrTooManyStreams = errors.New("too many streams")

	// ErrInvalidStreamName is returned for names outside [A-Za-z0-9_.-]{1,128}
	ErrInvalidStreamName = errors.New("invalid stream name")

	// ErrPipelineStopped is returned when submitting to a stopped pipeline
	ErrPipelineStopped = errors.New("pipeline stopped")
)

// BatchError reports the position of the first rejected value in a batch.
// Values before Index were observed; values from Index on were not.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("value at index %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
