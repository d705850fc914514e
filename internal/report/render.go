package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects a renderer.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
	FormatChrome
)

func (f Format) String() string {
	switch f {
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	case FormatChrome:
		return "chrome"
	default:
		return "unknown"
	}
}

// ParseFormat converts a --format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pretty", "":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "chrome":
		return FormatChrome, nil
	default:
		return FormatPretty, fmt.Errorf("unknown format %q (expected: pretty|json|chrome)", s)
	}
}

// Options tune rendering.
type Options struct {
	Color bool
	// Width limits pretty lines in terminal columns; 0 means 100.
	Width int
	// MaxDiagnostics limits printed diagnostics; 0 prints all.
	MaxDiagnostics int
	// Quiet hides points and correlation ids in pretty output.
	Quiet bool
}

// Render writes s in format.
func Render(w io.Writer, s *Summary, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatChrome:
		return WriteChrome(w, s)
	default:
		return WritePretty(w, s, opts)
	}
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
