// Package report turns correlated handler results into a stable Summary and
// renders it for people (pretty), machines (JSON), or trace viewers (Chrome).
package report

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"tracefold/internal/diag"
	"tracefold/internal/event"
	"tracefold/internal/handlers/meta"
	"tracefold/internal/usertimings"
)

// SchemaVersion changes whenever Summary changes shape.
const SchemaVersion = 1

// Interval is one nested interval. Events are kept in their wire form.
type Interval struct {
	Name       string          `json:"name" msgpack:"name"`
	Category   string          `json:"category" msgpack:"category"`
	Key        string          `json:"key" msgpack:"key"`
	Timestamp  int64           `json:"timestamp" msgpack:"timestamp"`
	Duration   int64           `json:"duration" msgpack:"duration"`
	Depth      int             `json:"depth" msgpack:"depth"`
	Parent     int             `json:"parent" msgpack:"parent"`
	PID        int64           `json:"pid" msgpack:"pid"`
	TID        int64           `json:"tid" msgpack:"tid"`
	BeginEvent json.RawMessage `json:"beginEvent" msgpack:"beginEvent"`
	EndEvent   json.RawMessage `json:"endEvent" msgpack:"endEvent"`
}

// Point is one instant, mark or timestamp.
type Point struct {
	Name      string          `json:"name" msgpack:"name"`
	Category  string          `json:"category" msgpack:"category"`
	Timestamp int64           `json:"timestamp" msgpack:"timestamp"`
	Phase     string          `json:"phase" msgpack:"phase"`
	PID       int64           `json:"pid" msgpack:"pid"`
	TID       int64           `json:"tid" msgpack:"tid"`
	Args      json.RawMessage `json:"args,omitempty" msgpack:"args"`
}

// Diagnostic is the flattened form of diag.Diagnostic.
type Diagnostic struct {
	Severity  string   `json:"severity" msgpack:"severity"`
	Code      string   `json:"code" msgpack:"code"`
	Message   string   `json:"message" msgpack:"message"`
	Seq       uint64   `json:"seq,omitempty" msgpack:"seq"`
	Timestamp int64    `json:"timestamp,omitempty" msgpack:"timestamp"`
	Key       string   `json:"key,omitempty" msgpack:"key"`
	Notes     []string `json:"notes,omitempty" msgpack:"notes"`
}

// Summary is everything tracefold reports about one trace.
type Summary struct {
	Schema          int                        `json:"schema" msgpack:"schema"`
	Source          string                     `json:"source,omitempty" msgpack:"source"`
	Intervals       []Interval                 `json:"intervals" msgpack:"intervals"`
	Points          []Point                    `json:"points" msgpack:"points"`
	ByCorrelationID map[string]json.RawMessage `json:"byCorrelationId" msgpack:"byCorrelationId"`
	Bounds          meta.Bounds                `json:"bounds" msgpack:"bounds"`
	Processes       map[int64]string           `json:"processes,omitempty" msgpack:"processes"`
	Stats           usertimings.Stats          `json:"stats" msgpack:"stats"`
	Diagnostics     []Diagnostic               `json:"diagnostics" msgpack:"diagnostics"`
	Dropped         int                        `json:"droppedDiagnostics,omitempty" msgpack:"dropped"`
}

// FromData builds a Summary. md may be nil when metadata was not collected.
func FromData(source string, ut *usertimings.Data, md *meta.Data) (*Summary, error) {
	s := &Summary{
		Schema:          SchemaVersion,
		Source:          source,
		Intervals:       make([]Interval, 0, len(ut.Intervals)),
		Points:          make([]Point, 0, len(ut.Points)),
		ByCorrelationID: make(map[string]json.RawMessage, len(ut.ByCorrelationID)),
		Stats:           ut.Stats,
		Bounds:          meta.Bounds{Empty: true},
	}

	for _, iv := range ut.Intervals {
		begin, err := json.Marshal(iv.Begin)
		if err != nil {
			return nil, fmt.Errorf("interval %q: %w", iv.Name, err)
		}
		end := begin
		if iv.End != iv.Begin {
			if end, err = json.Marshal(iv.End); err != nil {
				return nil, fmt.Errorf("interval %q: %w", iv.Name, err)
			}
		}
		s.Intervals = append(s.Intervals, Interval{
			Name:       iv.Name,
			Category:   iv.Category,
			Key:        iv.Key.String(),
			Timestamp:  int64(iv.Timestamp),
			Duration:   int64(iv.Duration),
			Depth:      iv.Depth,
			Parent:     iv.Parent,
			PID:        iv.Begin.PID,
			TID:        iv.Begin.TID,
			BeginEvent: begin,
			EndEvent:   end,
		})
	}

	for _, p := range ut.Points {
		var args json.RawMessage
		if len(p.Args) > 0 {
			b, err := json.Marshal(p.Args)
			if err != nil {
				return nil, fmt.Errorf("point %q: %w", p.Name, err)
			}
			args = b
		}
		s.Points = append(s.Points, Point{
			Name:      p.Name,
			Category:  p.Category,
			Timestamp: int64(p.Timestamp),
			Phase:     string(p.Event.Phase),
			PID:       p.Event.PID,
			TID:       p.Event.TID,
			Args:      args,
		})
	}

	for id, ev := range ut.ByCorrelationID {
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("correlation id %q: %w", id, err)
		}
		s.ByCorrelationID[string(id)] = b
	}

	bag := diag.NewBag(ut.Diagnostics.Len() + metaDiagnostics(md) + 1)
	bag.Merge(ut.Diagnostics)
	if md != nil {
		s.Bounds = md.Bounds
		if len(md.Processes) > 0 {
			s.Processes = maps.Clone(md.Processes)
		}
		bag.Merge(md.Diagnostics)
	}
	bag.Sort()
	s.Diagnostics = flatten(bag.Items())
	s.Dropped = bag.Dropped()
	return s, nil
}

func metaDiagnostics(md *meta.Data) int {
	if md == nil {
		return 0
	}
	return md.Diagnostics.Len()
}

func flatten(items []diag.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(items))
	for _, d := range items {
		out = append(out, Diagnostic{
			Severity:  d.Severity.Label(),
			Code:      d.Code.ID(),
			Message:   d.Message,
			Seq:       d.Primary.Seq,
			Timestamp: d.Primary.Timestamp,
			Key:       d.Primary.Key,
			Notes:     slices.Clone(d.Notes),
		})
	}
	return out
}

// Count returns how many diagnostics have the given severity name.
func (s *Summary) Count(severity string) int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Roots returns the indexes of top-level intervals.
func (s *Summary) Roots() []int {
	var out []int
	for i, iv := range s.Intervals {
		if iv.Parent < 0 {
			out = append(out, i)
		}
	}
	return out
}

// SortedCorrelationIDs returns the correlation ids in lexical order.
func (s *Summary) SortedCorrelationIDs() []string {
	return slices.Sorted(maps.Keys(s.ByCorrelationID))
}

// Event decodes the begin event of interval i.
func (s *Summary) Event(i int) (*event.Raw, error) {
	var ev event.Raw
	if err := json.Unmarshal(s.Intervals[i].BeginEvent, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
