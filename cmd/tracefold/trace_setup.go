package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"tracefold/internal/trace"
)

// setupTracing initializes the self-trace from the merged settings and
// attaches it to the command context. It returns a cleanup function.
func (a *app) setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()
	tc := a.settings.cfg.Trace

	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(tc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone turns tracing on at phase level
	if level == trace.LevelOff && root.PersistentFlags().Changed("trace") && !root.PersistentFlags().Changed("trace-level") {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		a.tracer = trace.Nop
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(tc.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	session, err := trace.Open(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: tc.Output,
		RingSize:   tc.RingSize,
		Heartbeat:  heartbeatInterval,
		Status: func() string {
			return "goroutines=" + strconv.Itoa(runtime.NumGoroutine())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	a.tracer = session.Tracer

	ctx := trace.WithTracer(cmd.Context(), session.Tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	cleanup := func() {
		if err := session.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpTraceOnPanic writes the ring buffer to stderr before re-panicking.
// It must be deferred directly by the command body.
func (a *app) dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring, ok := trace.RingOf(a.tracer); ok {
		fmt.Fprintf(os.Stderr, "tracefold: panic: %v\n", r)
		for _, ev := range ring.Unfinished() {
			fmt.Fprintf(os.Stderr, "in flight: %s %s\n", ev.Scope, ev.Name)
		}
		fmt.Fprintln(os.Stderr, "last trace events:")
		if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
		}
	}
	panic(r)
}
