package usertimings

import (
	"slices"

	"tracefold/internal/diag"
	"tracefold/internal/event"
)

// CorrelationID is an application supplied trace id (args.traceId), kept in
// its textual form so numeric and string ids share one map.
type CorrelationID string

// Interval is a matched begin/end pair or a single complete event.
type Interval struct {
	Name      string
	Category  string
	Key       Key
	Timestamp event.Micro
	Duration  event.Micro
	// Begin and End are the same event for complete events.
	Begin *event.Raw
	End   *event.Raw
	// Parent indexes Data.Intervals; -1 for roots.
	Parent int
	Depth  int
	// Discovery counts intervals in the order the handler completed them.
	Discovery uint64
}

// EndTime returns Timestamp+Duration.
func (iv Interval) EndTime() event.Micro {
	return iv.Timestamp + iv.Duration
}

// Point is an instant, mark or timestamp event.
type Point struct {
	Name      string
	Category  string
	Timestamp event.Micro
	Args      map[string]any
	Event     *event.Raw
}

// Stats counts what happened to the input.
type Stats struct {
	Events            int `json:"events"`
	Ignored           int `json:"ignored"`
	Intervals         int `json:"intervals"`
	Points            int `json:"points"`
	CorrelationIDs    int `json:"correlationIds"`
	UnmatchedEnds     int `json:"unmatchedEnds"`
	AbandonedBegins   int `json:"abandonedBegins"`
	NegativeDurations int `json:"negativeDurations"`
}

// Data is the sealed result of one pass. Slices and maps must be treated as
// read-only; the same Data is returned by every Handler.Data call until the
// next Reset.
type Data struct {
	Intervals       []Interval
	Points          []Point
	ByCorrelationID map[CorrelationID]*event.Raw
	Stats           Stats
	Diagnostics     *diag.Bag
}

// PerformanceMeasures returns performance.measure intervals in order.
// Parent indexes still refer to Data.Intervals.
func (d *Data) PerformanceMeasures() []Interval {
	return d.asyncIn(CategoryUserTiming)
}

// ConsoleTimings returns console.time intervals in order.
func (d *Data) ConsoleTimings() []Interval {
	return d.asyncIn(CategoryConsole)
}

// PerformanceMarks returns performance.mark points in order.
func (d *Data) PerformanceMarks() []Point {
	var out []Point
	for _, p := range d.Points {
		if p.Event.Kind() != event.KindMark && p.Event.Kind() != event.KindInstant {
			continue
		}
		if slices.Contains(p.Event.Categories(), CategoryUserTiming) {
			out = append(out, p)
		}
	}
	return out
}

// Timestamps returns console.timeStamp points in order.
func (d *Data) Timestamps() []Point {
	var out []Point
	for _, p := range d.Points {
		if p.Name == NameTimeStamp {
			out = append(out, p)
		}
	}
	return out
}

// Children returns the indexes of intervals whose parent is i.
func (d *Data) Children(i int) []int {
	var out []int
	for j := i + 1; j < len(d.Intervals); j++ {
		if d.Intervals[j].Parent == i {
			out = append(out, j)
		}
	}
	return out
}

func (d *Data) asyncIn(category string) []Interval {
	var out []Interval
	for _, iv := range d.Intervals {
		if iv.Begin.Kind() != event.KindAsyncBegin {
			continue
		}
		if slices.Contains(iv.Begin.Categories(), category) {
			out = append(out, iv)
		}
	}
	return out
}
