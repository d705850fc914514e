package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop is the disabled tracer.
var Nop Tracer = nopTracer{}

// Mode selects where events are kept.
type Mode string

const (
	ModeStream Mode = "stream" // written as they happen
	ModeRing   Mode = "ring"   // last N kept for crash dumps
	ModeBoth   Mode = "both"
)

// ParseMode accepts stream, ring or both. Empty means stream.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeStream, nil
	case ModeStream, ModeRing, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
	}
}

// Config describes a tracing session.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format    // FormatAuto picks from OutputPath
	Output     io.Writer // overrides OutputPath
	OutputPath string    // file path, "-" or "" for stderr
	RingSize   int       // default 4096

	// Heartbeat is the beat interval; 0 disables it. Status, when set,
	// supplies the detail of each beat.
	Heartbeat time.Duration
	Status    func() string
}

// Session is an open tracer together with its heartbeat.
type Session struct {
	Tracer    Tracer
	heartbeat *Heartbeat
}

// Open builds the tracer cfg describes and starts its heartbeat. LevelOff
// gives a session around Nop.
func Open(cfg Config) (*Session, error) {
	tr, err := newTracer(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{Tracer: tr, heartbeat: StartHeartbeat(tr, cfg.Heartbeat, cfg.Status)}, nil
}

// Close stops the heartbeat, then flushes and closes the tracer. Safe on nil
// and safe to repeat.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.heartbeat.Stop()
	return errors.Join(s.Tracer.Flush(), s.Tracer.Close())
}

// LevelError always keeps events in the ring only.
func newTracer(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStream
	}
	if cfg.Level == LevelError {
		cfg.Mode = ModeRing
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}

	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if cfg.OutputPath != "" && cfg.OutputPath != "-" {
			format = formatForPath(cfg.OutputPath)
		}
	}
	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, format)
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

// RingOf returns the ring buffer behind t, if any.
func RingOf(t Tracer) (*RingTracer, bool) {
	switch x := t.(type) {
	case *RingTracer:
		return x, true
	case *MultiTracer:
		return x.Ring()
	default:
		return nil, false
	}
}

// stdWriter hides Close so the tracer never closes stderr.
type stdWriter struct{ io.Writer }

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return stdWriter{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}
