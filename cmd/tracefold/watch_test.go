package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFile_RunsOnceAndStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := watchFile(ctx, path, func(context.Context) {
		calls++
		cancel()
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWatchFile_RerunsAfterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	calls := 0
	err := watchFile(ctx, path, func(context.Context) {
		calls++
		if calls == 1 {
			if err := os.WriteFile(path, []byte("[{}]"), 0o600); err != nil {
				t.Error(err)
			}
			return
		}
		cancel()
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	err := watchFile(context.Background(), filepath.Join(t.TempDir(), "no", "t.json"), func(context.Context) {
		t.Fatal("fn must not run")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}
