package usertimings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracefold/internal/diag"
	"tracefold/internal/event"
)

type feeder struct {
	seq uint64
}

func (f *feeder) ev(ph event.Phase, cat, name string, ts int64, id string) *event.Raw {
	f.seq++
	return &event.Raw{
		Phase:     ph,
		Category:  cat,
		Name:      name,
		Timestamp: event.Micro(ts),
		ID:        event.ID{Value: id},
		PID:       1,
		TID:       1,
		Seq:       f.seq,
	}
}

func (f *feeder) begin(name string, ts int64, id string) *event.Raw {
	return f.ev(event.PhaseAsyncNestableBegin, CategoryUserTiming, name, ts, id)
}

func (f *feeder) end(name string, ts int64, id string) *event.Raw {
	return f.ev(event.PhaseAsyncNestableEnd, CategoryUserTiming, name, ts, id)
}

func run(t *testing.T, events []*event.Raw) *Data {
	t.Helper()
	h := NewHandler(DefaultOptions())
	for _, ev := range events {
		if err := h.HandleEvent(ev); err != nil {
			t.Fatalf("HandleEvent(%s): %v", ev.Name, err)
		}
	}
	if err := h.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, err := h.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	return data
}

func reversed(in []*event.Raw) []*event.Raw {
	out := make([]*event.Raw, len(in))
	for i, ev := range in {
		out[len(in)-1-i] = ev
	}
	return out
}

type shape struct {
	Name     string
	Start    int64
	Duration int64
	Parent   string
	Depth    int
}

func shapes(d *Data) []shape {
	out := make([]shape, 0, len(d.Intervals))
	for _, iv := range d.Intervals {
		s := shape{Name: iv.Name, Start: int64(iv.Timestamp), Duration: int64(iv.Duration), Depth: iv.Depth}
		if iv.Parent >= 0 {
			s.Parent = d.Intervals[iv.Parent].Name
		}
		out = append(out, s)
	}
	return out
}

func names(ivs []Interval) []string {
	out := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, iv.Name)
	}
	return out
}

func threeMeasures() []*event.Raw {
	var f feeder
	return []*event.Raw{
		f.begin("first measure", 100, "1"),
		f.end("first measure", 150, "1"),
		f.begin("second measure", 50, "2"),
		f.end("second measure", 80, "2"),
		f.begin("third measure", 200, "3"),
		f.end("third measure", 260, "3"),
	}
}

func TestHandler_OrdersByBeginTimestamp(t *testing.T) {
	data := run(t, threeMeasures())
	want := []string{"second measure", "first measure", "third measure"}
	if diff := cmp.Diff(want, names(data.Intervals)); diff != "" {
		t.Fatalf("interval order mismatch (-want +got):\n%s", diff)
	}
	if data.Diagnostics.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", data.Diagnostics.Items())
	}
}

func TestHandler_ReversedInputMatchesForward(t *testing.T) {
	forward := run(t, threeMeasures())
	backward := run(t, reversed(threeMeasures()))
	if diff := cmp.Diff(shapes(forward), shapes(backward)); diff != "" {
		t.Fatalf("reversed feed differs (-forward +reversed):\n%s", diff)
	}
	if backward.Diagnostics.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", backward.Diagnostics.Items())
	}
}

func TestHandler_ResolvesContainment(t *testing.T) {
	var f feeder
	events := []*event.Raw{
		f.ev(event.PhaseAsyncNestableBegin, CategoryConsole, "durationTimeTotal", 0, "t"),
		f.ev(event.PhaseAsyncNestableBegin, CategoryConsole, "durationTime1", 10, "1"),
		f.ev(event.PhaseAsyncNestableEnd, CategoryConsole, "durationTime1", 40, "1"),
		f.ev(event.PhaseAsyncNestableBegin, CategoryConsole, "durationTime2", 50, "2"),
		f.ev(event.PhaseAsyncNestableEnd, CategoryConsole, "durationTime2", 90, "2"),
		f.ev(event.PhaseAsyncNestableEnd, CategoryConsole, "durationTimeTotal", 100, "t"),
	}
	want := []shape{
		{Name: "durationTimeTotal", Start: 0, Duration: 100},
		{Name: "durationTime1", Start: 10, Duration: 30, Parent: "durationTimeTotal", Depth: 1},
		{Name: "durationTime2", Start: 50, Duration: 40, Parent: "durationTimeTotal", Depth: 1},
	}
	for _, tc := range []struct {
		name   string
		events []*event.Raw
	}{
		{"forward", events},
		{"reversed", reversed(events)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := run(t, tc.events)
			if diff := cmp.Diff(want, shapes(data)); diff != "" {
				t.Fatalf("nesting mismatch (-want +got):\n%s", diff)
			}
			if got := data.Children(0); len(got) != 2 {
				t.Fatalf("Children(0) = %v", got)
			}
			if got := len(data.ConsoleTimings()); got != 3 {
				t.Fatalf("ConsoleTimings = %d, want 3", got)
			}
		})
	}
}

func TestHandler_SameStartOuterFirst(t *testing.T) {
	var f feeder
	data := run(t, []*event.Raw{
		f.begin("outer", 0, "o"),
		f.begin("inner", 0, "i"),
		f.end("inner", 5, "i"),
		f.end("outer", 10, "o"),
	})
	want := []shape{
		{Name: "outer", Start: 0, Duration: 10},
		{Name: "inner", Start: 0, Duration: 5, Parent: "outer", Depth: 1},
	}
	if diff := cmp.Diff(want, shapes(data)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_NestedSameKeyIsLIFO(t *testing.T) {
	var f feeder
	events := []*event.Raw{
		f.begin("recurse", 0, "r"),
		f.begin("recurse", 10, "r"),
		f.end("recurse", 20, "r"),
		f.end("recurse", 30, "r"),
	}
	want := []shape{
		{Name: "recurse", Start: 0, Duration: 30},
		{Name: "recurse", Start: 10, Duration: 10, Parent: "recurse", Depth: 1},
	}
	for _, in := range [][]*event.Raw{events, reversed(events)} {
		data := run(t, in)
		if diff := cmp.Diff(want, shapes(data)); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestHandler_UnmatchedEnd(t *testing.T) {
	var f feeder
	data := run(t, []*event.Raw{f.end("ghost", 10, "never-opened")})
	if len(data.Intervals) != 0 {
		t.Fatalf("intervals = %v", names(data.Intervals))
	}
	if data.Diagnostics.Count(diag.PairUnmatchedEnd) != 1 {
		t.Fatalf("expected one unmatched-end diagnostic, got %v", data.Diagnostics.Items())
	}
	if data.Stats.UnmatchedEnds != 1 {
		t.Fatalf("stats = %+v", data.Stats)
	}
}

func TestHandler_OrphanEndDoesNotClaimLaterBegin(t *testing.T) {
	var f feeder
	data := run(t, []*event.Raw{
		f.end("m", 5, "x"),
		f.begin("m", 10, "x"),
		f.end("m", 20, "x"),
	})
	want := []shape{{Name: "m", Start: 10, Duration: 10}}
	if diff := cmp.Diff(want, shapes(data)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if data.Diagnostics.Count(diag.PairUnmatchedEnd) != 1 {
		t.Fatalf("diagnostics = %v", data.Diagnostics.Items())
	}
}

func TestHandler_AbandonedBegin(t *testing.T) {
	var f feeder
	data := run(t, []*event.Raw{
		f.begin("open forever", 10, "a"),
		f.begin("closed", 20, "b"),
		f.end("closed", 30, "b"),
	})
	if diff := cmp.Diff([]string{"closed"}, names(data.Intervals)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	items := data.Diagnostics.Items()
	if len(items) != 1 || items[0].Code != diag.PairAbandonedBegin || items[0].Severity != diag.SevWarning {
		t.Fatalf("diagnostics = %v", items)
	}
	if items[0].Primary.Key != CategoryUserTiming+":a:open forever" {
		t.Fatalf("key = %q", items[0].Primary.Key)
	}
}

func TestHandler_DataBeforeFinalize(t *testing.T) {
	h := NewHandler(DefaultOptions())
	if _, err := h.Data(); !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("Data() error = %v, want ErrNotFinalized", err)
	}
}

func TestHandler_Lifecycle(t *testing.T) {
	var f feeder
	h := NewHandler(DefaultOptions())
	if err := h.HandleEvent(f.begin("a", 0, "1")); err != nil {
		t.Fatal(err)
	}
	if err := h.HandleEvent(f.end("a", 5, "1")); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := h.Finalize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.Finalize(ctx); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if err := h.HandleEvent(f.begin("b", 10, "2")); !errors.Is(err, ErrFeedAfterFinalize) {
		t.Fatalf("HandleEvent after finalize = %v", err)
	}

	first, _ := h.Data()
	second, _ := h.Data()
	if first != second || len(first.Intervals) != 1 {
		t.Fatalf("query is not idempotent")
	}

	h.Reset()
	if _, err := h.Data(); !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("Data after Reset = %v", err)
	}
	if err := h.HandleEvent(f.begin("b", 10, "2")); err != nil {
		t.Fatalf("HandleEvent after Reset: %v", err)
	}
}

func TestHandler_ZeroValueNeedsReset(t *testing.T) {
	var h Handler
	if err := h.HandleEvent(&event.Raw{Phase: event.PhaseMark}); !errors.Is(err, ErrNotReset) {
		t.Fatalf("HandleEvent = %v", err)
	}
	if err := h.Finalize(context.Background()); !errors.Is(err, ErrNotReset) {
		t.Fatalf("Finalize = %v", err)
	}
	h.Reset()
	if err := h.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize after Reset: %v", err)
	}
}

func TestHandler_FinalizeHonorsContext(t *testing.T) {
	h := NewHandler(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Finalize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Finalize = %v", err)
	}
}

func TestHandler_CorrelationID(t *testing.T) {
	var f feeder
	measure := f.ev(event.PhaseComplete, "devtools.timeline", NameUserTimingMeasure, 10, "")
	dur := event.Micro(5)
	measure.Duration = &dur
	measure.Args = map[string]any{"traceId": json.Number("1")}

	data := run(t, []*event.Raw{measure})
	if len(data.ByCorrelationID) != 1 || data.ByCorrelationID["1"] != measure {
		t.Fatalf("ByCorrelationID = %v", data.ByCorrelationID)
	}
	if len(data.Intervals) != 0 {
		t.Fatalf("measure with trace id must not become an interval")
	}
}

func TestHandler_DuplicateCorrelationIDKeepsLatest(t *testing.T) {
	var f feeder
	a := f.ev(event.PhaseComplete, CategoryUserTiming, NameUserTimingMeasure, 10, "")
	a.Args = map[string]any{"traceId": "abc"}
	b := f.ev(event.PhaseComplete, CategoryUserTiming, NameUserTimingMeasure, 20, "")
	b.Args = map[string]any{"traceId": "abc"}

	data := run(t, []*event.Raw{a, b})
	if data.ByCorrelationID["abc"] != b {
		t.Fatalf("expected latest event to win")
	}
	if data.Diagnostics.Count(diag.PairDuplicateCorrelationID) != 1 {
		t.Fatalf("diagnostics = %v", data.Diagnostics.Items())
	}
	if data.Diagnostics.HasWarnings() {
		t.Fatalf("duplicate ids are informational")
	}
}

func TestHandler_CompleteEvents(t *testing.T) {
	var f feeder
	good := f.ev(event.PhaseComplete, CategoryUserTiming, "complete", 10, "")
	d := event.Micro(20)
	good.Duration = &d
	bad := f.ev(event.PhaseComplete, CategoryUserTiming, "backwards", 50, "")
	neg := event.Micro(-5)
	bad.Duration = &neg

	data := run(t, []*event.Raw{good, bad})
	want := []shape{{Name: "complete", Start: 10, Duration: 20}}
	if diff := cmp.Diff(want, shapes(data)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if !data.Diagnostics.HasErrors() || data.Stats.NegativeDurations != 1 {
		t.Fatalf("expected negative-duration error, got %v", data.Diagnostics.Items())
	}
	if len(data.PerformanceMeasures()) != 0 {
		t.Fatalf("complete events are not performance measures")
	}
}

func TestHandler_PointsAndFiltering(t *testing.T) {
	var f feeder
	data := run(t, []*event.Raw{
		f.ev(event.PhaseMark, CategoryUserTiming, "mark-b", 30, ""),
		f.ev(event.PhaseInstantLegacy, "devtools.timeline", NameTimeStamp, 20, ""),
		f.ev(event.PhaseMark, CategoryUserTiming, "mark-a", 10, ""),
		f.ev(event.PhaseAsyncNestableBegin, "v8", "ignored", 0, "z"),
		f.ev(event.PhaseMetadata, "__metadata", "process_name", 0, ""),
	})

	var got []string
	for _, p := range data.Points {
		got = append(got, p.Name)
	}
	if diff := cmp.Diff([]string{"mark-a", NameTimeStamp, "mark-b"}, got); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
	if len(data.PerformanceMarks()) != 2 || len(data.Timestamps()) != 1 {
		t.Fatalf("marks=%d timestamps=%d", len(data.PerformanceMarks()), len(data.Timestamps()))
	}
	if data.Stats.Ignored != 2 || data.Stats.Events != 5 {
		t.Fatalf("stats = %+v", data.Stats)
	}
	if data.Diagnostics.Len() != 0 {
		t.Fatalf("filtered begins must not be reported: %v", data.Diagnostics.Items())
	}
}

func TestHandler_AnyCategory(t *testing.T) {
	var f feeder
	h := NewHandler(Options{Categories: []string{AnyCategory}})
	for _, ev := range []*event.Raw{
		f.ev(event.PhaseAsyncNestableBegin, "v8", "gc", 0, "1"),
		f.ev(event.PhaseAsyncNestableEnd, "v8", "gc", 7, "1"),
	} {
		if err := h.HandleEvent(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, _ := h.Data()
	if len(data.Intervals) != 1 || data.Intervals[0].Duration != 7 {
		t.Fatalf("intervals = %+v", data.Intervals)
	}
}

func TestHandler_Invariants(t *testing.T) {
	var f feeder
	var events []*event.Raw
	for i := range 20 {
		id := string(rune('a' + i%5))
		start := int64((i * 37) % 100)
		events = append(events,
			f.begin("m"+id, start, id),
			f.end("m"+id, start+int64(i%7)*3, id),
		)
	}
	data := run(t, reversed(events))
	for i, iv := range data.Intervals {
		if iv.Duration < 0 || iv.Duration != iv.End.Timestamp-iv.Begin.Timestamp {
			t.Fatalf("interval %d violates duration law: %+v", i, iv)
		}
		if i > 0 && data.Intervals[i-1].Timestamp > iv.Timestamp {
			t.Fatalf("interval %d out of order", i)
		}
		if iv.Parent >= 0 {
			p := data.Intervals[iv.Parent]
			if p.Timestamp > iv.Timestamp || p.EndTime() < iv.EndTime() {
				t.Fatalf("interval %d parent %d does not contain it", i, iv.Parent)
			}
			if iv.Depth != p.Depth+1 {
				t.Fatalf("interval %d depth %d, parent depth %d", i, iv.Depth, p.Depth)
			}
		}
	}
}

func TestKeyOf_NormalizesNames(t *testing.T) {
	composed := &event.Raw{Category: "c", Name: "caf\u00e9", ID: event.ID{Value: "1"}}
	decomposed := &event.Raw{Category: "c", Name: "cafe\u0301", ID: event.ID{Value: "1"}}
	if KeyOf(composed) != KeyOf(decomposed) {
		t.Fatal("NFC and NFD names should share a key")
	}
	local := &event.Raw{Category: "c", Name: "n", PID: 7, ID: event.ID{Value: "1", Local: true}}
	other := *local
	other.PID = 8
	if KeyOf(local) == KeyOf(&other) {
		t.Fatal("local ids from different processes must not share a key")
	}
}
