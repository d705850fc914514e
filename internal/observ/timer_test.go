package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimer(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load")
	tm.End(idx, "3 events")
	boom := errors.New("boom")
	if err := tm.Time("correlate", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Time returned %v", err)
	}
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Stages) != 2 || r.Stages[0].Note != "3 events" || r.Stages[1].Note != "boom" {
		t.Fatalf("report = %+v", r)
	}
	if r.TotalMS < r.Stages[0].DurationMS {
		t.Fatalf("total %f < stage %f", r.TotalMS, r.Stages[0].DurationMS)
	}
	out := tm.Summary()
	for _, want := range []string{"timings:", "load", "// 3 events", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTimer_Nil(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Stages) != 0 {
		t.Fatal("nil timer recorded stages")
	}
}
