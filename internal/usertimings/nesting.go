package usertimings

import "sort"

// sortIntervals orders by start, then longer first so containers precede
// their contents, then by discovery.
func sortIntervals(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		return a.Discovery < b.Discovery
	})
}

// resolveNesting assigns Parent and Depth over sorted intervals with a single
// sweep. The stack is always a chain where each entry encloses the next, so
// the top left after popping non-enclosers is the innermost parent. An entry
// that does not enclose cur ends no later than cur, so anything it could
// still enclose is inside cur too.
func resolveNesting(ivs []Interval) {
	stack := make([]int, 0, 16)
	for i := range ivs {
		cur := &ivs[i]
		for len(stack) > 0 && !encloses(&ivs[stack[len(stack)-1]], cur) {
			stack = stack[:len(stack)-1]
		}

		cur.Parent = -1
		cur.Depth = 0
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			cur.Parent = top
			cur.Depth = ivs[top].Depth + 1
		}
		stack = append(stack, i)
	}
}

// encloses reports whether b lies within a. A zero-width b sitting exactly
// on a's end is not inside a.
func encloses(a, b *Interval) bool {
	if a.Timestamp > b.Timestamp || a.EndTime() < b.EndTime() {
		return false
	}
	return a.EndTime() > b.Timestamp || a.Timestamp == b.Timestamp
}

func sortPoints(ps []Point) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Timestamp < ps[j].Timestamp
	})
}
