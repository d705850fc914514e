package traceio

import (
	"encoding/json"
	"fmt"
	"io"

	"tracefold/internal/event"
)

// Writer streams a complete {"traceEvents":[...]} document, one event per
// line.
type Writer struct {
	w          io.Writer
	wroteFirst bool
	closed     bool
}

// NewWriter writes the document header immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, `{"traceEvents":[`); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: w}, nil
}

// WriteEvent writes one event, delimiting it from the previous one.
func (s *Writer) WriteEvent(e *event.Raw) error {
	if s.closed {
		return fmt.Errorf("traceio: write after close")
	}
	delim := ",\n"
	if !s.wroteFirst {
		delim = "\n"
		s.wroteFirst = true
	}
	if _, err := io.WriteString(s.w, delim); err != nil {
		return fmt.Errorf("write event delimiter: %w", err)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close writes the footer. It does not close the underlying writer.
func (s *Writer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if _, err := io.WriteString(s.w, "\n]}\n"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	return nil
}
