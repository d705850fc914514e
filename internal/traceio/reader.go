// Package traceio reads and writes Trace Event Format documents.
//
// Input may be a JSON object with a "traceEvents" array, a bare JSON array of
// events, or either of those gzip-compressed. Events are decoded one at a time
// so large traces never need to be held in memory as raw JSON.
package traceio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/klauspost/compress/gzip"

	"tracefold/internal/diag"
	"tracefold/internal/event"
)

// ErrNotTrace is returned when the document is neither an object nor an array.
var ErrNotTrace = errors.New("traceio: input is not a trace document")

var gzipMagic = []byte{0x1f, 0x8b}

// Decompress returns a reader over the uncompressed stream. gzip input is
// detected by its magic bytes. Closing the result releases the gzip reader
// but never closes r.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(head) == len(gzipMagic) && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("traceio: gzip: %w", err)
		}
		return zr, nil
	}
	return io.NopCloser(br), nil
}

// Events decodes trace events from r. Each yielded event carries its 1-based
// position in the event array as Seq. A record that is valid JSON but not a
// valid event is skipped and reported to rep; a syntax error in the document
// ends the sequence with an error.
func Events(r io.Reader, rep diag.Reporter) iter.Seq2[*event.Raw, error] {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return func(yield func(*event.Raw, error) bool) {
		in, err := Decompress(r)
		if err != nil {
			yield(nil, err)
			return
		}
		defer in.Close()
		dec := json.NewDecoder(in)
		d := &decoder{dec: dec, rep: rep, yield: yield, strings: newInterner(defaultInternLimit)}
		if err := d.document(); err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

// errStopped signals that the consumer stopped ranging.
var errStopped = errors.New("stopped")

type decoder struct {
	dec   *json.Decoder
	rep   diag.Reporter
	yield func(*event.Raw, error) bool
	seq   uint64

	strings *interner
}

func (d *decoder) document() error {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty input", ErrNotTrace)
		}
		return fmt.Errorf("traceio: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("%w: unexpected %v", ErrNotTrace, tok)
	}
	switch delim {
	case '[':
		return d.array()
	case '{':
		return d.object()
	default:
		return fmt.Errorf("%w: unexpected %v", ErrNotTrace, delim)
	}
}

// object scans top-level keys and streams the traceEvents array; other keys
// such as metadata are skipped.
func (d *decoder) object() error {
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return fmt.Errorf("traceio: %w", err)
		}
		key, _ := tok.(string)
		if key != "traceEvents" {
			var skip json.RawMessage
			if err := d.dec.Decode(&skip); err != nil {
				return fmt.Errorf("traceio: %s: %w", key, err)
			}
			continue
		}
		tok, err = d.dec.Token()
		if err != nil {
			return fmt.Errorf("traceio: traceEvents: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return fmt.Errorf("%w: traceEvents is not an array", ErrNotTrace)
		}
		if err := d.array(); err != nil {
			return err
		}
	}
	return nil
}

// array decodes elements up to and including the closing bracket.
func (d *decoder) array() error {
	for d.dec.More() {
		var raw json.RawMessage
		if err := d.dec.Decode(&raw); err != nil {
			return fmt.Errorf("traceio: event %d: %w", d.seq+1, err)
		}
		d.seq++
		ev := &event.Raw{Seq: d.seq}
		if err := json.Unmarshal(raw, ev); err != nil {
			d.malformed(raw, err)
			continue
		}
		ev.Seq = d.seq
		ev.Name = d.strings.intern(ev.Name)
		ev.Category = d.strings.intern(ev.Category)
		if !d.yield(ev, nil) {
			return errStopped
		}
	}
	if _, err := d.dec.Token(); err != nil {
		return fmt.Errorf("traceio: %w", err)
	}
	return nil
}

func (d *decoder) malformed(raw json.RawMessage, err error) {
	var probe struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &probe) //nolint:errcheck
	diag.ReportWarning(d.rep, diag.LoadMalformedEvent,
		diag.Ref{Seq: d.seq, Name: probe.Name},
		fmt.Sprintf("skipped malformed event: %v", err)).Emit()
}

// File is an open trace file.
type File struct {
	Path string
	f    *os.File
}

// Open opens a trace file for Events.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, f: f}, nil
}

// Events decodes the file; see Events.
func (f *File) Events(rep diag.Reporter) iter.Seq2[*event.Raw, error] {
	return Events(f.f, rep)
}

func (f *File) Close() error { return f.f.Close() }

// ReadAll decodes every event of path into memory.
func ReadAll(path string, rep diag.Reporter) ([]*event.Raw, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*event.Raw
	for ev, err := range f.Events(rep) {
		if err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// ReadAllFrom decodes every event of r into memory.
func ReadAllFrom(r io.Reader) ([]*event.Raw, error) {
	var out []*event.Raw
	for ev, err := range Events(r, nil) {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}
