package traceio

import (
	"strings"
	"testing"
	"unsafe"
)

func TestInterner(t *testing.T) {
	in := newInterner(2)
	a := in.intern(strings.Clone("draw"))
	b := in.intern(strings.Clone("draw"))
	if unsafe.StringData(a) != unsafe.StringData(b) {
		t.Error("equal strings should share storage")
	}
	in.intern("layout")
	over := strings.Clone("paint")
	if got := in.intern(over); got != "paint" || in.Len() != 2 {
		t.Errorf("intern past the limit = %q, len %d", got, in.Len())
	}
	if in.intern("") != "" || in.Len() != 2 {
		t.Error("empty strings are not stored")
	}
}

func TestEvents_InternsNames(t *testing.T) {
	const doc = `[{"ph": "R", "cat": "c", "name": "mark", "ts": 1}, {"ph": "R", "cat": "c", "name": "mark", "ts": 2}]`
	events, err := ReadAllFrom(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	if unsafe.StringData(events[0].Name) != unsafe.StringData(events[1].Name) {
		t.Error("names should share storage")
	}
	if unsafe.StringData(events[0].Category) != unsafe.StringData(events[1].Category) {
		t.Error("categories should share storage")
	}
}
