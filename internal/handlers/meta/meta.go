// Package meta collects trace-wide facts: the time bounds of the trace and
// the process and thread names announced by metadata events.
package meta

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tracefold/internal/diag"
	"tracefold/internal/event"
)

// ErrNotFinalized is returned by Data before Finalize.
var ErrNotFinalized = errors.New("meta: data queried before finalize")

const (
	nameProcess = "process_name"
	nameThread  = "thread_name"
)

// Bounds is the time span covered by timestamped events.
type Bounds struct {
	Min   event.Micro `json:"min" msgpack:"min"`
	Max   event.Micro `json:"max" msgpack:"max"`
	Empty bool        `json:"empty,omitempty" msgpack:"empty"`
}

// Range returns Max-Min, or 0 for empty bounds.
func (b Bounds) Range() event.Micro {
	if b.Empty {
		return 0
	}
	return b.Max - b.Min
}

// Thread identifies a thread within a process.
type Thread struct {
	PID int64
	TID int64
}

func (t Thread) String() string {
	return strconv.FormatInt(t.PID, 10) + ":" + strconv.FormatInt(t.TID, 10)
}

// Data is the sealed metadata of one trace.
type Data struct {
	Bounds      Bounds
	Processes   map[int64]string
	Threads     map[Thread]string
	Phases      map[event.Phase]int
	Diagnostics *diag.Bag
}

// Handler gathers Data. Like every handler it is fed sequentially.
type Handler struct {
	maxDiagnostics int
	bounds         Bounds
	seen           bool
	processes      map[int64]string
	threads        map[Thread]string
	phases         map[event.Phase]int
	unknown        map[event.Phase]bool
	bag            *diag.Bag
	data           *Data
}

// NewHandler returns a reset handler.
func NewHandler(maxDiagnostics int) *Handler {
	h := &Handler{maxDiagnostics: maxDiagnostics}
	h.Reset()
	return h
}

func (h *Handler) Name() string { return "meta" }

func (h *Handler) Reset() {
	h.bounds = Bounds{}
	h.seen = false
	h.processes = make(map[int64]string)
	h.threads = make(map[Thread]string)
	h.phases = make(map[event.Phase]int)
	h.unknown = make(map[event.Phase]bool)
	h.bag = diag.NewBag(h.maxDiagnostics)
	h.data = nil
}

func (h *Handler) HandleEvent(ev *event.Raw) error {
	if h.data != nil {
		return fmt.Errorf("meta: event handled after finalize")
	}
	if h.bag == nil {
		h.Reset()
	}
	if ev == nil {
		return nil
	}
	h.phases[ev.Phase]++
	if !ev.Phase.Known() && !h.unknown[ev.Phase] {
		h.unknown[ev.Phase] = true
		diag.ReportInfo(diag.BagReporter{Bag: h.bag}, diag.LoadUnknownPhase,
			diag.Ref{Seq: ev.Seq, Timestamp: int64(ev.Timestamp), Name: ev.Name},
			fmt.Sprintf("unknown phase %q", ev.Phase)).Emit()
	}

	switch ev.Kind() {
	case event.KindMetadata:
		h.metadata(ev)
		return nil
	case event.KindAsyncBegin, event.KindAsyncEnd, event.KindInstant,
		event.KindMark, event.KindComplete, event.KindOther:
		h.extend(ev.Timestamp, ev.End())
	}
	return nil
}

func (h *Handler) extend(start, end event.Micro) {
	if !h.seen {
		h.bounds = Bounds{Min: start, Max: end}
		h.seen = true
		return
	}
	h.bounds.Min = min(h.bounds.Min, start)
	h.bounds.Max = max(h.bounds.Max, end)
}

func (h *Handler) metadata(ev *event.Raw) {
	name, ok := ev.ArgString("name")
	if !ok {
		return
	}
	switch ev.Name {
	case nameProcess:
		if prev, ok := h.processes[ev.PID]; ok && prev != name {
			h.conflict(ev, "process "+strconv.FormatInt(ev.PID, 10), prev, name)
		}
		h.processes[ev.PID] = name
	case nameThread:
		t := Thread{PID: ev.PID, TID: ev.TID}
		if prev, ok := h.threads[t]; ok && prev != name {
			h.conflict(ev, "thread "+t.String(), prev, name)
		}
		h.threads[t] = name
	}
}

func (h *Handler) conflict(ev *event.Raw, what, prev, name string) {
	diag.ReportWarning(diag.BagReporter{Bag: h.bag}, diag.MetaConflictingName,
		diag.Ref{Seq: ev.Seq, Timestamp: int64(ev.Timestamp), Name: ev.Name},
		fmt.Sprintf("%s renamed from %q to %q", what, prev, name)).Emit()
}

// Finalize seals the collected metadata; repeated calls are no-ops.
func (h *Handler) Finalize(ctx context.Context) error {
	if h.data != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.bag == nil {
		h.Reset()
	}
	b := h.bounds
	b.Empty = !h.seen
	h.bag.Sort()
	h.data = &Data{
		Bounds:      b,
		Processes:   h.processes,
		Threads:     h.threads,
		Phases:      h.phases,
		Diagnostics: h.bag,
	}
	return nil
}

// Data returns the sealed result.
func (h *Handler) Data() (*Data, error) {
	if h.data == nil {
		return nil, ErrNotFinalized
	}
	return h.data, nil
}
