package usertimings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tracefold/internal/diag"
	"tracefold/internal/event"
	"tracefold/internal/trace"
)

var (
	// ErrNotFinalized is returned by Data before Finalize.
	ErrNotFinalized = errors.New("usertimings: data queried before finalize")
	// ErrFeedAfterFinalize is returned by HandleEvent after Finalize without
	// an intervening Reset.
	ErrFeedAfterFinalize = errors.New("usertimings: event handled after finalize")
	// ErrNotReset is returned when a zero Handler is used before Reset.
	ErrNotReset = errors.New("usertimings: handler used before reset")
)

type state uint8

const (
	stateIdle state = iota
	stateAccumulating
	stateFinalized
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAccumulating:
		return "accumulating"
	case stateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Handler correlates one trace. It is not safe for concurrent use; events must
// be handled in arrival order.
type Handler struct {
	opts   Options
	state  state
	pairs  pairer
	points []Point
	byID   map[CorrelationID]*event.Raw
	stats  Stats
	bag    *diag.Bag
	data   *Data
}

// NewHandler returns a handler ready to accept events.
func NewHandler(opts Options) *Handler {
	h := &Handler{opts: opts.normalized()}
	h.Reset()
	return h
}

// Name identifies the handler in engine errors and traces.
func (h *Handler) Name() string { return "usertimings" }

// Reset drops all state and starts accumulating a new trace.
func (h *Handler) Reset() {
	if h.opts.MaxDiagnostics == 0 {
		h.opts = h.opts.normalized()
	}
	h.stats = Stats{}
	h.bag = diag.NewBag(h.opts.MaxDiagnostics)
	h.pairs = newPairer(diag.BagReporter{Bag: h.bag}, &h.stats)
	h.points = nil
	h.byID = make(map[CorrelationID]*event.Raw)
	h.data = nil
	h.state = stateAccumulating
}

// HandleEvent feeds one event. Malformed input never fails the call; it is
// recorded as a diagnostic instead.
func (h *Handler) HandleEvent(ev *event.Raw) error {
	switch h.state {
	case stateIdle:
		return ErrNotReset
	case stateFinalized:
		return ErrFeedAfterFinalize
	}
	if ev == nil {
		return nil
	}
	h.stats.Events++

	if ev.Name == h.opts.MeasureEventName {
		if id, ok := ev.ArgString("traceId"); ok {
			h.index(CorrelationID(id), ev)
			return nil
		}
	}

	kind := ev.Kind()
	if kind == event.KindInstant && ev.Name == h.opts.TimestampEventName {
		h.addPoint(ev)
		return nil
	}
	if !h.opts.Accepts(ev) {
		h.stats.Ignored++
		return nil
	}

	switch kind {
	case event.KindAsyncBegin:
		h.pairs.begin(ev)
	case event.KindAsyncEnd:
		h.pairs.end(ev)
	case event.KindInstant, event.KindMark:
		h.addPoint(ev)
	case event.KindComplete:
		h.pairs.complete(ev)
	case event.KindMetadata, event.KindOther:
		h.stats.Ignored++
	default:
		panic(fmt.Sprintf("usertimings: unhandled event kind %v", kind))
	}
	return nil
}

func (h *Handler) index(id CorrelationID, ev *event.Raw) {
	if prev, ok := h.byID[id]; ok {
		diag.ReportInfo(diag.BagReporter{Bag: h.bag}, diag.PairDuplicateCorrelationID,
			diag.Ref{Seq: ev.Seq, Timestamp: int64(ev.Timestamp), Name: ev.Name},
			"correlation id "+strconv.Quote(string(id))+" repeated; keeping the latest event").
			WithNote(fmt.Sprintf("previous event #%d at %d", prev.Seq, prev.Timestamp)).
			Emit()
	}
	h.byID[id] = ev
}

func (h *Handler) addPoint(ev *event.Raw) {
	h.points = append(h.points, Point{
		Name:      ev.Name,
		Category:  ev.Category,
		Timestamp: ev.Timestamp,
		Args:      ev.Args,
		Event:     ev,
	})
}

// Finalize seals the accumulated state: leftovers become diagnostics,
// intervals are sorted and nested, points sorted. Calling it again is a no-op.
func (h *Handler) Finalize(ctx context.Context) error {
	switch h.state {
	case stateIdle:
		return ErrNotReset
	case stateFinalized:
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span := trace.StartSpan(ctx, trace.ScopeHandler, "usertimings.finalize")

	h.pairs.drain()
	intervals := h.pairs.intervals
	sortIntervals(intervals)
	resolveNesting(intervals)
	sortPoints(h.points)

	h.stats.Intervals = len(intervals)
	h.stats.Points = len(h.points)
	h.stats.CorrelationIDs = len(h.byID)
	h.bag.Sort()

	h.data = &Data{
		Intervals:       intervals,
		Points:          h.points,
		ByCorrelationID: h.byID,
		Stats:           h.stats,
		Diagnostics:     h.bag,
	}
	h.state = stateFinalized

	span.Count("intervals", len(intervals)).Count("points", len(h.points)).End("")
	return nil
}

// Data returns the sealed result.
func (h *Handler) Data() (*Data, error) {
	if h.state != stateFinalized {
		return nil, fmt.Errorf("%w (state %s)", ErrNotFinalized, h.state)
	}
	return h.data, nil
}
