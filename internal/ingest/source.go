// Package ingest feeds measurements into the stream registry: a synthetic
// generator, a paced ticker loop, file readers and a queue consumer.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Source produces measurement values one at a time. Next returns io.EOF when
// the source is exhausted.
type Source interface {
	Next(ctx context.Context) (float64, error)
}

// SliceSource replays a fixed list of values
type SliceSource struct {
	values []float64
	pos    int
}

// NewSliceSource creates a source over values
func NewSliceSource(values []float64) *SliceSource {
	return &SliceSource{values: values}
}

// Next implements Source
func (s *SliceSource) Next(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.pos >= len(s.values) {
		return 0, io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}

// CSVSource reads one value per record from a CSV or newline-separated file.
// A non-numeric first record is treated as a header and used to locate
// Column; without a header the first column is read.
type CSVSource struct {
	reader *csv.Reader
	column string
	index  int
	record int
	primed bool
}

// NewCSVSource creates a CSVSource. column may be empty.
func NewCSVSource(r io.Reader, column string) *CSVSource {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	return &CSVSource{
		reader: reader,
		column: column,
	}
}

// Next implements Source
func (s *CSVSource) Next(ctx context.Context) (float64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		record, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("failed to read csv: %w", err)
		}
		s.record++

		if !s.primed {
			s.primed = true
			if idx, ok := s.header(record); ok {
				if idx < 0 {
					return 0, fmt.Errorf("column %q not found in header", s.column)
				}
				s.index = idx
				continue
			}
			if s.column != "" {
				return 0, fmt.Errorf("column %q requested but input has no header", s.column)
			}
		}

		if s.index >= len(record) {
			return 0, fmt.Errorf("record %d: missing column %d", s.record, s.index)
		}
		field := strings.TrimSpace(record[s.index])
		if field == "" {
			continue
		}

		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, fmt.Errorf("record %d: invalid value %q: %w", s.record, field, err)
		}
		return value, nil
	}
}

// header reports whether record is a header and the index of the wanted column
func (s *CSVSource) header(record []string) (int, bool) {
	if len(record) == 0 {
		return 0, false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64); err == nil {
		return 0, false
	}
	if s.column == "" {
		return 0, true
	}
	for i, name := range record {
		if strings.EqualFold(strings.TrimSpace(name), s.column) {
			return i, true
		}
	}
	return -1, true
}

// Drain reads src until io.EOF
func Drain(ctx context.Context, src Source) ([]float64, error) {
	var values []float64
	for {
		v, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
}
