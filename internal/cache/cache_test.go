package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracefold/internal/handlers/meta"
	"tracefold/internal/report"
	"tracefold/internal/usertimings"
)

func sampleSummary() *report.Summary {
	return &report.Summary{
		Schema: report.SchemaVersion,
		Source: "trace.json",
		Intervals: []report.Interval{{
			Name:       "total",
			Category:   "blink.console",
			Key:        "blink.console:0x1:total",
			Timestamp:  10,
			Duration:   90,
			Parent:     -1,
			BeginEvent: json.RawMessage(`{"ph":"b","ts":10}`),
			EndEvent:   json.RawMessage(`{"ph":"e","ts":100}`),
		}},
		Points:          []report.Point{{Name: "TimeStamp", Timestamp: 20, Phase: "I", Args: json.RawMessage(`{"data":{"message":"hi"}}`)}},
		ByCorrelationID: map[string]json.RawMessage{"1": json.RawMessage(`{"ph":"X"}`)},
		Bounds:          meta.Bounds{Min: 10, Max: 100},
		Processes:       map[int64]string{1: "Renderer"},
		Stats:           usertimings.Stats{Events: 5, Intervals: 1, Points: 1, CorrelationIDs: 1},
		Diagnostics:     []report.Diagnostic{{Severity: "warning", Code: "PAIR2001", Message: "m", Seq: 3}},
	}
}

func TestCache_PutGet(t *testing.T) {
	c, err := OpenDir(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := Combine(Digest{1}, "opts")

	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}

	want := sampleSummary()
	if err := c.Put(key, "trace.json", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Join(c.Dir(), "summaries"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}

	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatal("entry survived DropAll")
	}
	if err := c.Put(key, "trace.json", want); err != nil {
		t.Fatalf("Put after DropAll: %v", err)
	}
}

func TestCache_Nil(t *testing.T) {
	var c *Cache
	if err := c.Put(Digest{}, "", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(Digest{}); ok || err != nil {
		t.Fatalf("nil Get = %v, %v", ok, err)
	}
}

func TestKeyFor(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte(`[]`), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	ka, err := KeyFor(a, "x")
	if err != nil {
		t.Fatal(err)
	}
	kb, _ := KeyFor(b, "x")
	kc, _ := KeyFor(b, "y")
	if ka != kb {
		t.Fatal("same content and options must share a key")
	}
	if kb == kc {
		t.Fatal("different options must change the key")
	}
	if ka.IsZero() || len(ka.String()) != 64 {
		t.Fatalf("digest = %s", ka)
	}
	if _, err := KeyFor(filepath.Join(dir, "missing"), "x"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
