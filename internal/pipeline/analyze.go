// Package pipeline analyzes trace files: load, correlate, finalize, report.
// Batches run one handler engine per file on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tracefold/internal/cache"
	"tracefold/internal/diag"
	"tracefold/internal/handlers"
	"tracefold/internal/handlers/meta"
	"tracefold/internal/observ"
	"tracefold/internal/report"
	"tracefold/internal/trace"
	"tracefold/internal/traceio"
	"tracefold/internal/usertimings"
)

// Options configure the analysis of each file.
type Options struct {
	Correlate usertimings.Options
	// Cache is optional; nil disables caching.
	Cache    *cache.Cache
	Progress ProgressSink
	RunID    uuid.UUID
}

// Result is the outcome for one file.
type Result struct {
	Path     string
	Summary  *report.Summary
	Err      error
	CacheHit bool
	Elapsed  time.Duration
	Timings  observ.Report
}

// Analyze runs every stage on path. Failures are returned in Result.Err so
// batches keep going.
func Analyze(ctx context.Context, path string, opts Options) Result {
	sink := opts.Progress
	if sink == nil {
		sink = nopSink{}
	}
	start := time.Now()
	timer := observ.NewTimer()
	ctx, span := trace.StartSpan(ctx, trace.ScopeFile, path)

	emit := func(stage Stage, status Status, err error) {
		sink.OnEvent(Event{RunID: opts.RunID, File: path, Stage: stage, Status: status, Err: err, Elapsed: time.Since(start)})
	}

	res := Result{Path: path}
	res.Summary, res.CacheHit, res.Err = analyze(ctx, path, opts, timer, emit)
	res.Elapsed = time.Since(start)
	res.Timings = timer.Report()

	detail := "ok"
	switch {
	case res.Err != nil:
		detail = res.Err.Error()
		emit(StageReport, StatusError, res.Err)
	case res.CacheHit:
		detail = "cached"
		emit(StageReport, StatusDone, nil)
	default:
		emit(StageReport, StatusDone, nil)
	}
	span.Attr("cache_hit", strconv.FormatBool(res.CacheHit)).End(detail)
	return res
}

func analyze(ctx context.Context, path string, opts Options, timer *observ.Timer, emit func(Stage, Status, error)) (*report.Summary, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	emit(StageLoad, StatusWorking, nil)
	var (
		key    cache.Digest
		file   *traceio.File
		cached *report.Summary
	)
	err := timer.Time(string(StageLoad), func() error {
		if opts.Cache != nil {
			var err error
			if key, err = cache.KeyFor(path, opts.Correlate.Fingerprint()); err != nil {
				return err
			}
			summary, ok, err := opts.Cache.Get(key)
			switch {
			case err != nil:
				trace.Note(ctx, trace.ScopeFile, "cache.unreadable", err.Error())
			case ok:
				cached = summary
				return nil
			}
		}
		var err error
		file, err = traceio.Open(path)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		cached.Source = path
		return cached, true, nil
	}
	defer file.Close()

	ut := usertimings.NewHandler(opts.Correlate)
	md := meta.NewHandler(opts.Correlate.MaxDiagnostics)
	engine := handlers.NewEngine(ut, md)
	loadBag := diag.NewBag(opts.Correlate.MaxDiagnostics)

	emit(StageCorrelate, StatusWorking, nil)
	engine.Reset()
	if err := timer.Time(string(StageCorrelate), func() error {
		n, err := engine.Feed(ctx, file.Events(diag.NewDedupReporter(diag.BagReporter{Bag: loadBag})))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		trace.Note(ctx, trace.ScopeFile, "fed", strconv.Itoa(n)+" events")
		return nil
	}); err != nil {
		return nil, false, err
	}

	emit(StageFinalize, StatusWorking, nil)
	if err := timer.Time(string(StageFinalize), func() error {
		return engine.Finalize(ctx)
	}); err != nil {
		return nil, false, err
	}

	emit(StageReport, StatusWorking, nil)
	var summary *report.Summary
	err = timer.Time(string(StageReport), func() error {
		utData, err := ut.Data()
		if err != nil {
			return err
		}
		mdData, err := md.Data()
		if err != nil {
			return err
		}
		if tr := trace.FromContext(ctx); tr.Level() >= trace.LevelDetail && utData.Diagnostics.Len() > 0 {
			trace.Note(ctx, trace.ScopeFile, "diagnostics", diag.FormatShort(utData.Diagnostics.Items(), false))
		}
		mdData.Diagnostics.Merge(loadBag)
		mdData.Diagnostics.Sort()
		summary, err = report.FromData(path, utData, mdData)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if err := opts.Cache.Put(key, path, summary); err != nil {
		trace.Note(ctx, trace.ScopeFile, "cache.write_failed", err.Error())
	}
	return summary, false, nil
}
