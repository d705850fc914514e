package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tracefold/internal/trace"
)

// traceSuffixes are the file names picked up when a directory is given.
var traceSuffixes = []string{".json", ".json.gz", ".trace", ".trace.gz"}

// IsTraceFile reports whether name looks like a trace file.
func IsTraceFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range traceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// ListTraces expands directories into the trace files they contain, keeps
// explicit files as given, and returns a sorted, duplicate-free list.
func ListTraces(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsTraceFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// BatchOptions configure a batch run.
type BatchOptions struct {
	Options
	// Jobs bounds concurrent files; 0 means GOMAXPROCS.
	Jobs int
}

// Run is the outcome of a batch.
type Run struct {
	ID      uuid.UUID
	Results []Result
	Elapsed time.Duration
}

// Failed returns the number of files that could not be analyzed.
func (r *Run) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Batch analyzes files concurrently. Results keep the order of files. Per
// file failures are recorded in the results; only cancellation aborts the
// run.
func Batch(ctx context.Context, files []string, opts BatchOptions) (*Run, error) {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.Progress == nil {
		opts.Progress = nopSink{}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	start := time.Now()
	ctx, span := trace.StartSpan(ctx, trace.ScopeCommand, "batch")
	span.Attr("run_id", opts.RunID.String())

	for _, f := range files {
		opts.Progress.OnEvent(Event{RunID: opts.RunID, File: f, Status: StatusQueued})
	}

	run := &Run{ID: opts.RunID, Results: make([]Result, len(files))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				run.Results[i] = Result{Path: path, Err: err}
				return err
			}
			run.Results[i] = Analyze(gctx, path, opts.Options)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	run.Elapsed = time.Since(start)

	status := StatusDone
	if err != nil {
		status = StatusError
	}
	opts.Progress.OnEvent(Event{RunID: opts.RunID, Status: status, Err: err, Elapsed: run.Elapsed})
	span.End(fmt.Sprintf("%d files, %d failed", len(files), run.Failed()))
	return run, err
}
