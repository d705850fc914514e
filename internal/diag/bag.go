package diag

import (
	"fmt"
	"math"
	"sort"

	"fortio.org/safecast"
)

// Bag collects the diagnostics of one trace up to a fixed limit. Diagnostics
// past the limit are counted in Dropped rather than kept.
type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped int
}

// NewBag creates a bag holding at most max diagnostics. Values above the
// uint16 range are clamped.
func NewBag(max int) *Bag {
	limit, err := safecast.Conv[uint16](max)
	if err != nil {
		if max < 0 {
			limit = 0
		} else {
			limit = math.MaxUint16
		}
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(int(limit), 64)),
		max:   limit,
	}
}

// Add appends a diagnostic while under the limit.
// Returns false and counts the diagnostic as dropped otherwise.
func (b *Bag) Add(d Diagnostic) bool {
	if b == nil {
		return false
	}
	if len(b.items) >= int(b.max) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// Dropped counts diagnostics rejected by the limit.
func (b *Bag) Dropped() int {
	if b == nil {
		return 0
	}
	return b.dropped
}

// HasErrors reports whether any diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	return b.hasAtLeast(SevError)
}

// HasWarnings reports whether any diagnostic has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	return b.hasAtLeast(SevWarning)
}

func (b *Bag) hasAtLeast(sev Severity) bool {
	if b == nil {
		return false
	}
	for i := range b.items {
		if b.items[i].Severity >= sev {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns the diagnostics. The slice aliases the bag; do not modify it.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Count returns how many diagnostics carry the code.
func (b *Bag) Count(code Code) int {
	n := 0
	for _, d := range b.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Merge appends diagnostics from other, raising the limit to fit them.
func (b *Bag) Merge(other *Bag) {
	if b == nil || other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if newTotal > int(b.max) {
		if limit, err := safecast.Conv[uint16](newTotal); err == nil {
			b.max = limit
		} else {
			b.max = math.MaxUint16
		}
	}
	for _, d := range other.items {
		b.Add(d)
	}
	b.dropped += other.dropped
}

// Sort orders diagnostics by arrival sequence, timestamp, severity (desc) and
// code so output is deterministic.
func (b *Bag) Sort() {
	if b == nil {
		return
	}
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.Seq != dj.Primary.Seq {
			return di.Primary.Seq < dj.Primary.Seq
		}
		if di.Primary.Timestamp != dj.Primary.Timestamp {
			return di.Primary.Timestamp < dj.Primary.Timestamp
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops repeated Code+Primary pairs.
func (b *Bag) Dedup() {
	if b == nil {
		return
	}
	seen := make(map[string]bool)
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%s", d.Code.ID(), d.Primary.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}
