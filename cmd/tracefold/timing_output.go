package main

import (
	"fmt"
	"io"
	"time"

	"tracefold/internal/observ"
	"tracefold/internal/pipeline"
)

// printTimings writes the per stage table of one analysis.
func printTimings(out io.Writer, path string, r observ.Report, cacheHit bool) {
	if out == nil || len(r.Stages) == 0 {
		return
	}
	note := ""
	if cacheHit {
		note = " (cached)"
	}
	fmt.Fprintf(out, "%s%s\n%s", path, note, r.Summary())
}

// printBatchTimings writes every file's table followed by the wall time.
func printBatchTimings(out io.Writer, run *pipeline.Run) {
	if out == nil || run == nil {
		return
	}
	for _, res := range run.Results {
		printTimings(out, res.Path, res.Timings, res.CacheHit)
	}
	fmt.Fprintf(out, "batch %s: %d files in %.1f ms\n", run.ID, len(run.Results), toMillis(run.Elapsed))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
