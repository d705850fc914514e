package usertimings

import (
	"fmt"
	"slices"
	"sort"

	"tracefold/internal/diag"
	"tracefold/internal/event"
)

type pending struct {
	ev  *event.Raw
	seq uint64
}

// pendingStacks holds the waiting endpoints of one key. begins is the LIFO
// stack of open intervals; ends holds ends that arrived before their begin.
type pendingStacks struct {
	begins []pending
	ends   []pending
}

func (s *pendingStacks) empty() bool {
	return len(s.begins) == 0 && len(s.ends) == 0
}

// pairer is the single-pass begin/end matcher.
type pairer struct {
	open       map[Key]*pendingStacks
	intervals  []Interval
	inserted   uint64
	discovered uint64
	reporter   diag.Reporter
	stats      *Stats
}

func newPairer(reporter diag.Reporter, stats *Stats) pairer {
	return pairer{
		open:     make(map[Key]*pendingStacks),
		reporter: reporter,
		stats:    stats,
	}
}

func (p *pairer) stacks(k Key) *pendingStacks {
	st, ok := p.open[k]
	if !ok {
		st = &pendingStacks{}
		p.open[k] = st
	}
	return st
}

func (p *pairer) release(k Key, st *pendingStacks) {
	if st.empty() {
		delete(p.open, k)
	}
}

func (p *pairer) next() uint64 {
	p.inserted++
	return p.inserted
}

// begin closes against the latest waiting end that does not precede it, or
// opens a new interval.
func (p *pairer) begin(ev *event.Raw) {
	k := KeyOf(ev)
	st := p.stacks(k)
	for i := len(st.ends) - 1; i >= 0; i-- {
		if st.ends[i].ev.Timestamp >= ev.Timestamp {
			end := st.ends[i].ev
			st.ends = slices.Delete(st.ends, i, i+1)
			p.release(k, st)
			p.emit(k, ev, end)
			return
		}
	}
	st.begins = append(st.begins, pending{ev: ev, seq: p.next()})
}

// end pops the innermost open begin that does not follow it, or waits.
func (p *pairer) end(ev *event.Raw) {
	k := KeyOf(ev)
	st := p.stacks(k)
	for i := len(st.begins) - 1; i >= 0; i-- {
		if st.begins[i].ev.Timestamp <= ev.Timestamp {
			begin := st.begins[i].ev
			st.begins = slices.Delete(st.begins, i, i+1)
			p.release(k, st)
			p.emit(k, begin, ev)
			return
		}
	}
	st.ends = append(st.ends, pending{ev: ev, seq: p.next()})
}

func (p *pairer) complete(ev *event.Raw) {
	var dur event.Micro
	if ev.Duration != nil {
		dur = *ev.Duration
	}
	p.add(KeyOf(ev), ev, ev, dur)
}

func (p *pairer) emit(k Key, begin, end *event.Raw) {
	p.add(k, begin, end, end.Timestamp-begin.Timestamp)
}

func (p *pairer) add(k Key, begin, end *event.Raw, dur event.Micro) {
	if dur < 0 {
		p.stats.NegativeDurations++
		diag.ReportError(p.reporter, diag.PairNegativeDuration, refOf(begin, k),
			fmt.Sprintf("interval %q has negative duration %dµs", begin.Name, dur)).
			WithNote(fmt.Sprintf("end event #%d at %d", end.Seq, end.Timestamp)).
			Emit()
		return
	}
	p.intervals = append(p.intervals, Interval{
		Name:      begin.Name,
		Category:  begin.Category,
		Key:       k,
		Timestamp: begin.Timestamp,
		Duration:  dur,
		Begin:     begin,
		End:       end,
		Parent:    -1,
		Discovery: p.discovered,
	})
	p.discovered++
}

// drain reports everything still waiting and clears the state. Leftovers are
// reported in insertion order so diagnostics do not depend on map iteration.
func (p *pairer) drain() {
	type leftover struct {
		pending
		key   Key
		isEnd bool
	}
	var rest []leftover
	for k, st := range p.open {
		for _, b := range st.begins {
			rest = append(rest, leftover{pending: b, key: k})
		}
		for _, e := range st.ends {
			rest = append(rest, leftover{pending: e, key: k, isEnd: true})
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].seq < rest[j].seq })

	for _, l := range rest {
		if l.isEnd {
			p.stats.UnmatchedEnds++
			diag.ReportWarning(p.reporter, diag.PairUnmatchedEnd, refOf(l.ev, l.key),
				fmt.Sprintf("end of %q has no matching begin; dropped", l.ev.Name)).Emit()
			continue
		}
		p.stats.AbandonedBegins++
		diag.ReportWarning(p.reporter, diag.PairAbandonedBegin, refOf(l.ev, l.key),
			fmt.Sprintf("begin of %q was never closed; dropped", l.ev.Name)).Emit()
	}
	clear(p.open)
}

func refOf(ev *event.Raw, k Key) diag.Ref {
	return diag.Ref{
		Seq:       ev.Seq,
		Timestamp: int64(ev.Timestamp),
		Name:      ev.Name,
		Key:       k.String(),
	}
}
