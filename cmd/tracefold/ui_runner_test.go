package main

import (
	"context"
	"errors"
	"testing"

	"tracefold/internal/pipeline"
)

func TestBatchOutcome_WithUIError(t *testing.T) {
	errView := errors.New("terminal gone")
	run := &pipeline.Run{}
	tests := []struct {
		name        string
		outcome     batchOutcome
		uiErr       error
		interrupted bool
		want        error
	}{
		{name: "clean", outcome: batchOutcome{run: run}},
		{name: "view failed", outcome: batchOutcome{run: run}, uiErr: errView, want: errView},
		{name: "interrupted", outcome: batchOutcome{run: run}, uiErr: errView, interrupted: true},
		{name: "batch error wins", outcome: batchOutcome{run: run, err: context.Canceled}, uiErr: errView, want: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotRun, err := tt.outcome.withUIError(tt.uiErr, tt.interrupted)
			if gotRun != run {
				t.Fatal("run not passed through")
			}
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
