package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tracefold/internal/pipeline"
	"tracefold/internal/report"
)

type batchFlags struct {
	jobs      int
	format    string
	diskCache bool
}

func (a *app) batchCommand() *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "batch [flags] <dir|files...>",
		Short: "Correlate many traces in parallel",
		Long: `Batch analyzes every trace file found under the given directories, plus any
files named directly, and prints one line per file. Files are processed
concurrently; one broken file does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.dumpTraceOnPanic()
			return a.runBatch(cmd, args, f)
		},
	}
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "files analyzed concurrently (0 = number of CPUs)")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off); overrides [output].progress")
	cmd.Flags().StringVar(&f.format, "format", "pretty", "output format (pretty|json)")
	cmd.Flags().BoolVar(&f.diskCache, "disk-cache", false, "reuse summaries from the on-disk cache")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string, f batchFlags) error {
	if f.format != "pretty" && f.format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	useUI, err := a.settings.progressView(cmd.Flags(), stdoutFile(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	files, err := pipeline.ListTraces(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no trace files found")
	}

	cfg := a.settings.cfg
	opts := pipeline.BatchOptions{
		Options: pipeline.Options{Correlate: cfg.Options()},
		Jobs:    f.jobs,
	}
	if f.diskCache || cfg.Cache.Enabled {
		if opts.Cache, err = openCache(cfg.Cache.Dir); err != nil {
			return err
		}
	}

	var run *pipeline.Run
	if useUI && f.format == "pretty" {
		run, err = runBatchWithUI(cmd.Context(), "tracefold batch", files, opts)
	} else {
		run, err = pipeline.Batch(cmd.Context(), files, opts)
	}
	if run == nil {
		return err
	}

	var werr error
	if f.format == "json" {
		werr = writeBatchJSON(cmd.OutOrStdout(), run)
	} else {
		writeBatchPretty(cmd.OutOrStdout(), run, a.settings.useColor(stdoutFile(cmd.OutOrStdout())))
	}
	if a.settings.timings {
		printBatchTimings(cmd.ErrOrStderr(), run)
	}
	if err != nil {
		return err
	}
	if werr != nil {
		return werr
	}
	if failed := run.Failed(); failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d files failed", failed, len(run.Results))}
	}
	return nil
}

type batchEntry struct {
	Path      string          `json:"path"`
	Error     string          `json:"error,omitempty"`
	CacheHit  bool            `json:"cacheHit"`
	ElapsedMS float64         `json:"elapsedMs"`
	Summary   *report.Summary `json:"summary,omitempty"`
}

type batchPayload struct {
	RunID   string       `json:"runId"`
	Elapsed float64      `json:"elapsedMs"`
	Failed  int          `json:"failed"`
	Files   []batchEntry `json:"files"`
}

func writeBatchJSON(out io.Writer, run *pipeline.Run) error {
	payload := batchPayload{
		RunID:   run.ID.String(),
		Elapsed: toMillis(run.Elapsed),
		Failed:  run.Failed(),
		Files:   make([]batchEntry, len(run.Results)),
	}
	for i, res := range run.Results {
		entry := batchEntry{
			Path:      res.Path,
			CacheHit:  res.CacheHit,
			ElapsedMS: toMillis(res.Elapsed),
			Summary:   res.Summary,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		payload.Files[i] = entry
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writeBatchPretty(out io.Writer, run *pipeline.Run, useColor bool) {
	okLabel := color.New(color.FgGreen, color.Bold)
	failLabel := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{okLabel, failLabel, dim} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, res := range run.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", failLabel.Sprint("FAIL"), res.Path, res.Err)
			continue
		}
		s := res.Summary
		cached := ""
		if res.CacheHit {
			cached = " cached"
		}
		fmt.Fprintf(out, "%s   %s  %d intervals, %d points, %d errors, %d warnings %s\n",
			okLabel.Sprint("ok"), res.Path,
			len(s.Intervals), len(s.Points), s.Count("error"), s.Count("warning"),
			dim.Sprintf("%.1fms%s", toMillis(res.Elapsed), cached))
	}
	fmt.Fprintf(out, "%d files, %d failed in %.1fms\n", len(run.Results), run.Failed(), toMillis(run.Elapsed))
}
