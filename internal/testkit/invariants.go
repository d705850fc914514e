// Package testkit holds checks shared by tests of the correlation handlers.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"tracefold/internal/usertimings"
)

// CheckIntervals verifies the laws every finalized result obeys:
// 1) intervals are ordered by start timestamp
// 2) every duration is non-negative and equals end minus begin
// 3) a parent precedes its child, contains it, and sits one level up
func CheckIntervals(data *usertimings.Data) error {
	if data == nil {
		return fmt.Errorf("nil data")
	}
	ivs := data.Intervals
	for i, iv := range ivs {
		if iv.Begin == nil || iv.End == nil {
			return fmt.Errorf("interval %d %q: missing endpoint", i, iv.Name)
		}
		if i > 0 && ivs[i-1].Timestamp > iv.Timestamp {
			return fmt.Errorf("interval %d %q starts at %d before its predecessor at %d", i, iv.Name, iv.Timestamp, ivs[i-1].Timestamp)
		}
		if iv.Duration < 0 {
			return fmt.Errorf("interval %d %q: negative duration %d", i, iv.Name, iv.Duration)
		}
		if iv.Begin != iv.End && iv.Duration != iv.End.Timestamp-iv.Begin.Timestamp {
			return fmt.Errorf("interval %d %q: duration %d != end-begin %d", i, iv.Name, iv.Duration, iv.End.Timestamp-iv.Begin.Timestamp)
		}
		if err := checkParent(ivs, i); err != nil {
			return err
		}
	}
	return nil
}

func checkParent(ivs []usertimings.Interval, i int) error {
	iv := ivs[i]
	if iv.Parent < 0 {
		if iv.Depth != 0 {
			return fmt.Errorf("interval %d %q: root with depth %d", i, iv.Name, iv.Depth)
		}
		return nil
	}
	if iv.Parent >= i {
		return fmt.Errorf("interval %d %q: parent %d does not precede it", i, iv.Name, iv.Parent)
	}
	p := ivs[iv.Parent]
	if p.Timestamp > iv.Timestamp || p.EndTime() < iv.EndTime() {
		return fmt.Errorf("interval %d %q [%d,%d] is not inside parent %q [%d,%d]",
			i, iv.Name, iv.Timestamp, iv.EndTime(), p.Name, p.Timestamp, p.EndTime())
	}
	if iv.Depth != p.Depth+1 {
		return fmt.Errorf("interval %d %q: depth %d under parent depth %d", i, iv.Name, iv.Depth, p.Depth)
	}
	return nil
}

// CheckStats verifies that the counters agree with the data.
func CheckStats(data *usertimings.Data) error {
	if data.Stats.Intervals != len(data.Intervals) {
		return fmt.Errorf("stats.intervals = %d, have %d", data.Stats.Intervals, len(data.Intervals))
	}
	if data.Stats.Points != len(data.Points) {
		return fmt.Errorf("stats.points = %d, have %d", data.Stats.Points, len(data.Points))
	}
	if data.Stats.CorrelationIDs != len(data.ByCorrelationID) {
		return fmt.Errorf("stats.correlationIds = %d, have %d", data.Stats.CorrelationIDs, len(data.ByCorrelationID))
	}
	warnings, err := safecast.Conv[uint16](data.Stats.UnmatchedEnds + data.Stats.AbandonedBegins)
	if err != nil {
		return fmt.Errorf("leftover count overflow: %w", err)
	}
	if data.Diagnostics.Dropped() == 0 && data.Diagnostics.Len() < int(warnings) {
		return fmt.Errorf("%d leftovers but only %d diagnostics", warnings, data.Diagnostics.Len())
	}
	return nil
}
