package report

import (
	"encoding/json"
	"io"

	"tracefold/internal/event"
	"tracefold/internal/traceio"
)

// ChromeCategory tags every exported event so re-imported reports are easy
// to filter.
const ChromeCategory = "tracefold.report"

// WriteChrome exports the nested intervals as complete events and the points
// as instants. Viewers rebuild the nesting from the timestamps; the resolved
// parent and depth travel in args.
func WriteChrome(w io.Writer, s *Summary) error {
	tw, err := traceio.NewWriter(w)
	if err != nil {
		return err
	}
	for i, iv := range s.Intervals {
		dur := event.Micro(iv.Duration)
		args := map[string]any{
			"key":   iv.Key,
			"depth": iv.Depth,
			"index": i,
		}
		if iv.Parent >= 0 {
			args["parent"] = s.Intervals[iv.Parent].Name
		}
		ev := &event.Raw{
			Phase:     event.PhaseComplete,
			Category:  ChromeCategory + "," + iv.Category,
			Name:      iv.Name,
			Timestamp: event.Micro(iv.Timestamp),
			Duration:  &dur,
			PID:       iv.PID,
			TID:       iv.TID,
			Args:      args,
		}
		if err := tw.WriteEvent(ev); err != nil {
			return err
		}
	}
	for _, p := range s.Points {
		var args map[string]any
		if len(p.Args) > 0 {
			if err := json.Unmarshal(p.Args, &args); err != nil {
				return err
			}
		}
		ev := &event.Raw{
			Phase:     event.PhaseInstant,
			Category:  ChromeCategory + "," + p.Category,
			Name:      p.Name,
			Timestamp: event.Micro(p.Timestamp),
			PID:       p.PID,
			TID:       p.TID,
			Scope:     "t",
			Args:      args,
		}
		if err := tw.WriteEvent(ev); err != nil {
			return err
		}
	}
	for _, id := range s.SortedCorrelationIDs() {
		var ev event.Raw
		if err := json.Unmarshal(s.ByCorrelationID[id], &ev); err != nil {
			return err
		}
		ev.Category = ChromeCategory + ",correlation"
		if ev.Args == nil {
			ev.Args = map[string]any{}
		}
		ev.Args["correlationId"] = id
		if err := tw.WriteEvent(&ev); err != nil {
			return err
		}
	}
	return tw.Close()
}
