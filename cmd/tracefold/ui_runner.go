package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tracefold/internal/pipeline"
	"tracefold/internal/ui"
)

type batchOutcome struct {
	run *pipeline.Run
	err error
}

// runBatchWithUI runs the batch in the background and renders its progress
// events until the batch closes the channel.
func runBatchWithUI(parent context.Context, title string, files []string, opts pipeline.BatchOptions) (*pipeline.Run, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		opts.Progress = pipeline.ChannelSink{Ch: events}
		run, err := pipeline.Batch(ctx, files, opts)
		outcomeCh <- batchOutcome{run: run, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	interrupted := parent.Err() != nil
	// the view is gone; stop the batch if it is still running and keep its
	// sends from blocking
	cancel()
	go func() {
		for range events {
		}
	}()
	return (<-outcomeCh).withUIError(uiErr, interrupted)
}

// withUIError reports a failure of the view itself when the batch succeeded
// and nobody interrupted the run. An interrupt makes the view fail too, and
// that is not worth reporting.
func (o batchOutcome) withUIError(uiErr error, interrupted bool) (*pipeline.Run, error) {
	if uiErr != nil && o.err == nil && !interrupted {
		return o.run, uiErr
	}
	return o.run, o.err
}
