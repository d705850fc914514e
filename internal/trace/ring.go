package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events for crash dumps.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	start int // oldest stored event
	n     int
	level Level
}

// NewRingTracer creates a RingTracer; capacity <= 0 means 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// Emit stores a copy of ev, dropping the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = *ev
		t.n++
		return
	}
	t.buf[t.start] = *ev
	t.start = (t.start + 1) % len(t.buf)
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, t.n)
	for i := range out {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}

// Unfinished returns the begin events in the buffer whose span has not
// ended, oldest first. After a panic these name the command, file and
// handler phase that were running.
func (t *RingTracer) Unfinished() []Event {
	snap := t.Snapshot()
	ended := make(map[uint64]bool)
	for _, ev := range snap {
		if ev.Kind == KindSpanEnd {
			ended[ev.SpanID] = true
		}
	}
	var out []Event
	for _, ev := range snap {
		if ev.Kind == KindSpanBegin && !ended[ev.SpanID] {
			out = append(out, ev)
		}
	}
	return out
}

// Dump writes the stored events in format. Chrome dumps are complete
// documents. w is never closed.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	st := NewStreamTracer(stdWriter{w}, LevelDebug, format)
	for _, ev := range t.Snapshot() {
		st.Emit(&ev)
	}
	return st.Close()
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
