// Package cache stores analysis summaries on disk, keyed by the digest of the
// trace content and the options that shaped the analysis.
package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"tracefold/internal/report"
)

// schemaVersion changes whenever Payload changes shape.
const schemaVersion uint16 = 1

// Cache is a directory of msgpack payloads. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is one cached analysis.
type Payload struct {
	Schema uint16
	// SummarySchema guards against report.Summary changes.
	SummarySchema int
	Source        string
	StoredAt      time.Time
	Summary       *report.Summary
}

// Open returns the cache under $XDG_CACHE_HOME/app, or ~/.cache/app.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir returns a cache rooted at dir, creating it if needed.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "summaries", key.String()+".mp")
}

// Put writes the summary atomically. A nil cache is a no-op.
func (c *Cache) Put(key Digest, source string, s *report.Summary) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()           //nolint:errcheck
			_ = os.Remove(f.Name()) //nolint:errcheck
		}
	}()

	payload := Payload{
		Schema:        schemaVersion,
		SummarySchema: report.SchemaVersion,
		Source:        source,
		StoredAt:      time.Now().UTC(),
		Summary:       s,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get loads the summary stored under key. Entries written by another schema
// read as misses.
func (c *Cache) Get(key Digest) (*report.Summary, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != schemaVersion || payload.SummarySchema != report.SchemaVersion || payload.Summary == nil {
		return nil, false, nil
	}
	return payload.Summary, true, nil
}

// DropAll removes every cached entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
