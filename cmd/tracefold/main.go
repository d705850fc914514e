// Command tracefold correlates user timing events in Chrome traces.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tracefold/internal/prof"
	"tracefold/internal/trace"
	"tracefold/internal/version"
)

// app carries what the commands of one invocation share.
type app struct {
	settings settings
	tracer   trace.Tracer
	cleanup  func()
	profile  *prof.Session
}

// exitError asks main for a specific status code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// command builds the command tree. Every invocation gets fresh flags.
func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "tracefold",
		Short:         "Correlate user timing events in Chrome traces",
		Long:          `tracefold pairs performance.measure and console.time events, nests them, and reports what did not pair`,
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare(cmd)
		},
	}

	root.AddCommand(a.analyzeCommand())
	root.AddCommand(a.batchCommand())
	root.AddCommand(versionCommand())

	flags := root.PersistentFlags()
	flags.String("config", "", "path to tracefold.toml or .tracefold.yaml (default: nearest one)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to keep per trace")
	flags.String("trace", "", "write the self-trace to a file (- for stderr)")
	flags.String("trace-level", "off", "self-trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "self-trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "self-trace format (auto|text|ndjson|chrome)")
	flags.Int("trace-ring-size", 4096, "self-trace ring buffer capacity")
	flags.Duration("trace-heartbeat", 0, "self-trace heartbeat interval (0 disables)")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to file")
	return root
}

// prepare resolves settings and starts tracing before any subcommand runs.
func (a *app) prepare(cmd *cobra.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	a.settings = s
	color.NoColor = !s.useColor(os.Stdout)
	cleanup, err := a.setupTracing(cmd)
	if err != nil {
		return err
	}
	a.cleanup = cleanup
	profile, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	a.profile = profile
	return nil
}

// close stops profiling and flushes the tracer.
func (a *app) close() {
	if err := a.profile.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "tracefold: %v\n", err)
	}
	a.profile = nil
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{tracer: trace.Nop}
	err := a.command().ExecuteContext(ctx)
	a.close()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "tracefold: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
