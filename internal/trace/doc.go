// Package trace is tracefold's own span tracing.
//
// It records what the tool itself does (loading a file, feeding handlers,
// finalizing) so slow or stuck runs can be diagnosed. It is unrelated to the
// traces tracefold analyzes, except that the Chrome output format can be fed
// back into `tracefold analyze --categories tracefold`.
//
// # Usage
//
//	tracefold analyze --trace=- --trace-level=detail trace.json
//	tracefold batch --trace=run.chrome.json --trace-mode=both traces/
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: writes each event immediately
//   - RingTracer: keeps the last N events for crash dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelPhase: commands and files
//   - LevelDetail: handler phases
//   - LevelDebug: everything including per-event spans
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, session.Tracer)
//	ctx, span := trace.StartSpan(ctx, trace.ScopeFile, path)
//	defer span.End("")
//	trace.Note(ctx, trace.ScopeFile, "loaded", "12 events")
package trace
