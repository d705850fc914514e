package diag

import (
	"testing"
)

func TestBag_AddRespectsLimit(t *testing.T) {
	bag := NewBag(2)
	for i := 0; i < 4; i++ {
		bag.Add(Diagnostic{Severity: SevWarning, Code: PairUnmatchedEnd, Primary: Ref{Seq: uint64(i)}})
	}
	if bag.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bag.Len())
	}
	if bag.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", bag.Dropped())
	}
}

func TestNewBag_ClampsLimit(t *testing.T) {
	tests := []struct {
		name string
		max  int
		want uint16
	}{
		{name: "negative", max: -5, want: 0},
		{name: "in range", max: 100, want: 100},
		{name: "too large", max: 1 << 20, want: 65535},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewBag(tt.max).Cap(); got != tt.want {
				t.Errorf("Cap() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBag_SortAndSeverity(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevWarning, Code: PairAbandonedBegin, Primary: Ref{Seq: 5}})
	bag.Add(Diagnostic{Severity: SevInfo, Code: PairDuplicateCorrelationID, Primary: Ref{Seq: 1}})
	bag.Add(Diagnostic{Severity: SevError, Code: PairNegativeDuration, Primary: Ref{Seq: 5}})
	bag.Sort()

	items := bag.Items()
	if items[0].Code != PairDuplicateCorrelationID {
		t.Errorf("first = %v", items[0].Code)
	}
	if items[1].Code != PairNegativeDuration {
		t.Errorf("error should sort before warning on the same event, got %v", items[1].Code)
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Errorf("HasErrors/HasWarnings mismatch")
	}
	if bag.Count(PairAbandonedBegin) != 1 {
		t.Errorf("Count() = %d", bag.Count(PairAbandonedBegin))
	}
}

func TestBag_MergeAndDedup(t *testing.T) {
	a := NewBag(1)
	a.Add(Diagnostic{Code: PairUnmatchedEnd, Primary: Ref{Seq: 1}})
	b := NewBag(5)
	b.Add(Diagnostic{Code: PairUnmatchedEnd, Primary: Ref{Seq: 1}})
	b.Add(Diagnostic{Code: PairUnmatchedEnd, Primary: Ref{Seq: 2}})

	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("Len() after merge = %d, want 3", a.Len())
	}
	a.Dedup()
	if a.Len() != 2 {
		t.Fatalf("Len() after dedup = %d, want 2", a.Len())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	d := Diagnostic{Severity: SevWarning, Code: PairUnmatchedEnd, Message: "x", Primary: Ref{Seq: 3}}
	r.Report(d)
	r.Report(d)
	ReportWarning(r, PairUnmatchedEnd, Ref{Seq: 4}, "x").WithNote("n").Emit()
	if bag.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bag.Len())
	}
	if got := bag.Items()[1].Notes; len(got) != 1 || got[0] != "n" {
		t.Fatalf("notes = %v", got)
	}
}

func TestFormatShort(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     PairUnmatchedEnd,
			Message:  "end event\nwithout begin",
			Primary:  Ref{Seq: 12, Timestamp: 4500, Key: "blink.console:0x1:load"},
			Notes:    []string{"dropped"},
		},
		{
			Severity: SevError,
			Code:     PairNegativeDuration,
			Message:  "negative",
			Primary:  Ref{Seq: 3, Timestamp: 10, Name: "x"},
		},
	}
	want := "warning PAIR2001 #12@4500 blink.console:0x1:load end event without begin\n" +
		"note PAIR2001 dropped\n" +
		"error PAIR2003 #3@10 x negative"
	if got := FormatShort(diags, true); got != want {
		t.Fatalf("FormatShort:\nwant:\n%s\ngot:\n%s", want, got)
	}
	if FormatShort(nil, true) != "" {
		t.Fatal("expected empty output")
	}
}
