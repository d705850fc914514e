package usertimings_test

import (
	"context"
	"math/rand/v2"
	"strconv"
	"testing"

	"tracefold/internal/event"
	"tracefold/internal/testkit"
	"tracefold/internal/usertimings"
)

// randomTrace builds well-formed pairs over a few keys, some nested under
// the same key, plus complete events and orphans.
func randomTrace(r *rand.Rand) []*event.Raw {
	var evs []*event.Raw
	add := func(ph event.Phase, name, id string, ts int64) *event.Raw {
		ev := &event.Raw{Phase: ph, Category: usertimings.CategoryUserTiming, Name: name, ID: event.ID{Value: id}, Timestamp: event.Micro(ts)}
		evs = append(evs, ev)
		return ev
	}
	for i := range 40 {
		id := strconv.Itoa(r.IntN(4))
		name := "m" + id
		start := r.Int64N(1000)
		add(event.PhaseAsyncNestableBegin, name, id, start)
		add(event.PhaseAsyncNestableEnd, name, id, start+r.Int64N(200))
		if i%10 == 0 {
			d := event.Micro(r.Int64N(50))
			add(event.PhaseComplete, "x"+id, "", start).Duration = &d
		}
	}
	add(event.PhaseAsyncNestableEnd, "orphan", "z", 5)
	add(event.PhaseAsyncNestableBegin, "abandoned", "y", 7)
	return evs
}

func correlate(t *testing.T, evs []*event.Raw) *usertimings.Data {
	t.Helper()
	h := usertimings.NewHandler(usertimings.DefaultOptions())
	for i, ev := range evs {
		ev.Seq = uint64(i + 1)
		if err := h.HandleEvent(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := h.Data()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandler_LawsHoldForAnyOrder(t *testing.T) {
	for seed := range uint64(25) {
		r := rand.New(rand.NewPCG(seed, seed*7+1))
		evs := randomTrace(r)

		orders := map[string][]*event.Raw{"forward": evs}
		rev := make([]*event.Raw, len(evs))
		for i, ev := range evs {
			rev[len(evs)-1-i] = ev
		}
		orders["reversed"] = rev
		shuffled := append([]*event.Raw(nil), evs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		orders["shuffled"] = shuffled

		for name, in := range orders {
			data := correlate(t, in)
			if err := testkit.CheckIntervals(data); err != nil {
				t.Fatalf("seed %d %s: %v", seed, name, err)
			}
			if err := testkit.CheckStats(data); err != nil {
				t.Fatalf("seed %d %s: %v", seed, name, err)
			}
		}
	}
}

func TestHandler_ReversedPairsMatchForward(t *testing.T) {
	for seed := range uint64(25) {
		r := rand.New(rand.NewPCG(seed, 99))
		var evs []*event.Raw
		for i := range 30 {
			id := strconv.Itoa(i)
			start := r.Int64N(1000)
			evs = append(evs,
				&event.Raw{Phase: event.PhaseAsyncNestableBegin, Category: usertimings.CategoryConsole, Name: "t" + id, ID: event.ID{Value: id}, Timestamp: event.Micro(start)},
				&event.Raw{Phase: event.PhaseAsyncNestableEnd, Category: usertimings.CategoryConsole, Name: "t" + id, ID: event.ID{Value: id}, Timestamp: event.Micro(start + r.Int64N(300))},
			)
		}
		forward := correlate(t, evs)
		rev := make([]*event.Raw, len(evs))
		for i, ev := range evs {
			rev[len(evs)-1-i] = ev
		}
		backward := correlate(t, rev)

		set := func(d *usertimings.Data) map[string]int {
			out := make(map[string]int)
			for _, iv := range d.Intervals {
				out[iv.Name+"@"+strconv.FormatInt(int64(iv.Timestamp), 10)+"+"+strconv.FormatInt(int64(iv.Duration), 10)]++
			}
			return out
		}
		f, b := set(forward), set(backward)
		if len(f) != len(b) || len(forward.Intervals) != 30 {
			t.Fatalf("seed %d: forward %d intervals, reversed %d", seed, len(forward.Intervals), len(backward.Intervals))
		}
		for k, n := range f {
			if b[k] != n {
				t.Fatalf("seed %d: interval %s differs", seed, k)
			}
		}
	}
}
