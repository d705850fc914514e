package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracefold/internal/cache"
	"tracefold/internal/pipeline"
	"tracefold/internal/report"
	"tracefold/internal/trace"
)

type analyzeFlags struct {
	format     string
	categories []string
	diskCache  bool
	watch      bool
	strict     bool
	output     string
}

func (a *app) analyzeCommand() *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [flags] <trace>",
		Short: "Correlate one trace and report intervals, points and diagnostics",
		Long: `Analyze reads a Chrome trace (JSON object, bare array, optionally gzipped),
pairs async begin/end events into intervals, nests them, and reports the
result. Diagnostics describe every event that could not be paired.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.dumpTraceOnPanic()
			return a.runAnalyze(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", "", "output format (pretty|json|chrome); default from config")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "categories to correlate (* for all); default from config")
	cmd.Flags().BoolVar(&f.diskCache, "disk-cache", false, "reuse summaries from the on-disk cache")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "re-analyze whenever the trace file changes")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit with status 2 when any warning or error diagnostic is reported")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, f analyzeFlags) error {
	ctx, span := trace.StartSpan(cmd.Context(), trace.ScopeCommand, "analyze")
	defer span.End("")

	cfg := a.settings.cfg
	formatName := cfg.Output.Format
	if f.format != "" {
		formatName = f.format
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Correlate: cfg.Options()}
	if len(f.categories) > 0 {
		opts.Correlate.Categories = f.categories
	}
	if f.diskCache || cfg.Cache.Enabled {
		if opts.Cache, err = openCache(cfg.Cache.Dir); err != nil {
			return err
		}
	}

	once := func(ctx context.Context) error {
		res := pipeline.Analyze(ctx, path, opts)
		if res.Err != nil {
			return res.Err
		}
		if err := a.writeReport(cmd, res.Summary, format, f.output); err != nil {
			return err
		}
		if a.settings.timings {
			printTimings(cmd.ErrOrStderr(), res.Path, res.Timings, res.CacheHit)
		}
		if f.strict {
			return strictCheck(res.Summary)
		}
		return nil
	}

	if !f.watch {
		return once(ctx)
	}
	return watchFile(ctx, path, func(ctx context.Context) {
		if err := once(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "tracefold: %v\n", err)
		}
		if !a.settings.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", path)
		}
	})
}

// writeReport renders s to path, or to the command output when path is empty.
func (a *app) writeReport(cmd *cobra.Command, s *report.Summary, format report.Format, path string) error {
	var (
		out   io.Writer = cmd.OutOrStdout()
		color bool
	)
	if path == "" {
		color = a.settings.useColor(stdoutFile(out))
	} else {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
		color = a.settings.cfg.Output.Color == "on"
	}
	err := report.Render(out, s, format, report.Options{
		Color:          color,
		Width:          a.settings.cfg.Output.Width,
		MaxDiagnostics: a.settings.cfg.Correlate.MaxDiagnostics,
		Quiet:          a.settings.quiet,
	})
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// strictCheck fails when any diagnostic is a warning or an error.
func strictCheck(s *report.Summary) error {
	warnings, errs := s.Count("warning"), s.Count("error")
	if warnings+errs == 0 {
		return nil
	}
	return &exitError{
		code: 2,
		err:  fmt.Errorf("%s: %d error(s), %d warning(s)", s.Source, errs, warnings),
	}
}

// openCache opens dir, or the per user cache directory when dir is empty.
func openCache(dir string) (*cache.Cache, error) {
	if strings.TrimSpace(dir) != "" {
		return cache.OpenDir(dir)
	}
	return cache.Open("tracefold")
}

// stdoutFile returns w as a file when it is the process stdout.
func stdoutFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		return f
	}
	return nil
}
