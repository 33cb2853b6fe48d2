package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// SubmitFunc receives each value pulled from a Source
type SubmitFunc func(ctx context.Context, value float64) error

// Run pulls one value from src every interval and hands it to submit. It
// returns nil when ctx is cancelled or src reports io.EOF, and the first
// error from src or submit otherwise.
func Run(ctx context.Context, src Source, interval time.Duration, submit SubmitFunc) error {
	if interval <= 0 {
		return fmt.Errorf("ingest interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		value, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("source failed: %w", err)
		}

		if err := submit(ctx, value); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("submit failed: %w", err)
		}
	}
}
