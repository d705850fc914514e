package event

import (
	"encoding/json"
	"testing"
)

func TestPhase_Kind(t *testing.T) {
	tests := []struct {
		phase Phase
		want  Kind
	}{
		{PhaseAsyncNestableBegin, KindAsyncBegin},
		{PhaseAsyncBegin, KindAsyncBegin},
		{PhaseAsyncNestableEnd, KindAsyncEnd},
		{PhaseAsyncEnd, KindAsyncEnd},
		{PhaseInstant, KindInstant},
		{PhaseInstantLegacy, KindInstant},
		{PhaseAsyncNestableInst, KindInstant},
		{PhaseMark, KindMark},
		{PhaseComplete, KindComplete},
		{PhaseMetadata, KindMetadata},
		{PhaseBegin, KindOther},
		{PhaseCounter, KindOther},
		{Phase("?"), KindOther},
	}
	for _, tt := range tests {
		if got := tt.phase.Kind(); got != tt.want {
			t.Errorf("Phase(%q).Kind() = %v, want %v", tt.phase, got, tt.want)
		}
	}
}

func TestRaw_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, ev Raw)
	}{
		{
			name:  "async begin with hex id",
			input: `{"ph":"b","cat":"blink.user_timing","name":"first measure","ts":100,"pid":1,"tid":2,"id":"0x9072211"}`,
			check: func(t *testing.T, ev Raw) {
				if ev.Kind() != KindAsyncBegin {
					t.Errorf("kind = %v", ev.Kind())
				}
				if ev.ID != (ID{Value: "0x9072211"}) {
					t.Errorf("id = %+v", ev.ID)
				}
				if ev.PID != 1 || ev.TID != 2 {
					t.Errorf("pid/tid = %d/%d", ev.PID, ev.TID)
				}
			},
		},
		{
			name:  "fractional timestamp rounds",
			input: `{"ph":"I","name":"x","ts":12.6}`,
			check: func(t *testing.T, ev Raw) {
				if ev.Timestamp != 13 {
					t.Errorf("ts = %d, want 13", ev.Timestamp)
				}
			},
		},
		{
			name:  "id2 local",
			input: `{"ph":"e","name":"x","ts":1,"id2":{"local":"0x1"}}`,
			check: func(t *testing.T, ev Raw) {
				if ev.ID != (ID{Value: "0x1", Local: true}) {
					t.Errorf("id = %+v", ev.ID)
				}
			},
		},
		{
			name:  "id2 global wins over local",
			input: `{"ph":"e","name":"x","ts":1,"id2":{"local":"0x1","global":"0x2"}}`,
			check: func(t *testing.T, ev Raw) {
				if ev.ID != (ID{Value: "0x2"}) {
					t.Errorf("id = %+v", ev.ID)
				}
			},
		},
		{
			name:  "numeric id and args",
			input: `{"ph":"X","name":"UserTiming::Measure","ts":0,"dur":100,"id":7,"args":{"traceId":1,"data":{"message":"hi"}}}`,
			check: func(t *testing.T, ev Raw) {
				if ev.ID.Value != "7" {
					t.Errorf("id = %q", ev.ID.Value)
				}
				if ev.Duration == nil || *ev.Duration != 100 {
					t.Fatalf("dur = %v", ev.Duration)
				}
				if ev.End() != 100 {
					t.Errorf("end = %d", ev.End())
				}
				if s, ok := ev.ArgString("traceId"); !ok || s != "1" {
					t.Errorf("traceId = %q, %v", s, ok)
				}
				if s, ok := ev.ArgString("data", "message"); !ok || s != "hi" {
					t.Errorf("message = %q, %v", s, ok)
				}
				if _, ok := ev.Arg("data", "missing"); ok {
					t.Errorf("unexpected arg")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev Raw
			if err := json.Unmarshal([]byte(tt.input), &ev); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestRaw_UnmarshalJSONRejectsMissingPhase(t *testing.T) {
	var ev Raw
	if err := json.Unmarshal([]byte(`{"name":"x","ts":1}`), &ev); err == nil {
		t.Fatal("expected error for event without phase")
	}
}

func TestRaw_Categories(t *testing.T) {
	ev := Raw{Category: "blink.console, devtools.timeline,,"}
	got := ev.Categories()
	if len(got) != 2 || got[0] != "blink.console" || got[1] != "devtools.timeline" {
		t.Fatalf("categories = %q", got)
	}
}

func TestRaw_MarshalRoundTripKeepsLocalID(t *testing.T) {
	in := Raw{Phase: PhaseAsyncNestableBegin, Category: "c", Name: "n", Timestamp: 5, ID: ID{Value: "0x3", Local: true}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Raw
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != in.ID || out.Name != in.Name || out.Timestamp != in.Timestamp {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
