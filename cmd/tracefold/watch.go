package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period after the last write before re-running.
const watchDebounce = 250 * time.Millisecond

// watchFile calls fn once, then again after every change to path, until ctx
// is canceled. The parent directory is watched so editors that replace the
// file by rename are noticed. fn never runs concurrently with itself.
func watchFile(ctx context.Context, path string, fn func(context.Context)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", path, err)
	}

	fn(ctx)

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce.Reset(watchDebounce)
			}

		case <-debounce.C:
			if _, err := os.Stat(abs); err != nil {
				// mid replace; the Create that follows re-arms the timer
				continue
			}
			fn(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}
