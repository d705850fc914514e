package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

func nextSeq() uint64 { return seq.Add(1) }

// goroutineID parses "goroutine 123 [running]:" from the current stack. The
// Chrome format uses it as the thread id.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf, ok := bytes.CutPrefix(buf, []byte("goroutine "))
	if !ok {
		return 0
	}
	id, _, _ := bytes.Cut(buf, []byte(" "))
	gid, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span is one begin/end pair. Spans from a disabled tracer have ID 0 and
// ignore every call.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	gid     uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

var disabledSpan = &Span{tracer: Nop}

// Begin starts a span under parent, nil for a root, and emits its begin
// event.
func Begin(t Tracer, parent *Span, scope Scope, name string) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return disabledSpan
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent.ID(),
		gid:     goroutineID(),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Seq:      nextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     name,
	})
	return s
}

// Attr records key=value on the end event.
func (s *Span) Attr(key, value string) *Span {
	if s.ID() == 0 {
		return s
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// Count records an integer attribute such as an event or interval count.
func (s *Span) Count(key string, n int) *Span {
	if s.ID() == 0 {
		return s
	}
	return s.Attr(key, strconv.Itoa(n))
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s.ID() == 0 {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     s.started.Add(dur),
		Seq:      nextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.attrs,
	})
	return dur
}

// EndErr ends the span with err as its detail; a nil err leaves it empty.
func (s *Span) EndErr(err error) time.Duration {
	if err == nil {
		return s.End("")
	}
	return s.End(err.Error())
}

// ID returns the span ID, 0 for disabled or nil spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent.
func Point(t Tracer, parent *Span, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	gid := parent.gidOrCurrent()
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent.ID(),
		GID:      gid,
		Name:     name,
		Detail:   detail,
	})
}

// gidOrCurrent keeps a point on its span's lane so viewers draw it there.
func (s *Span) gidOrCurrent() uint64 {
	if s.ID() != 0 && s.gid != 0 {
		return s.gid
	}
	return goroutineID()
}
