// Package observ measures the stages of one analysis for --timings.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage records the duration and note of one measured step.
type Stage struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects stages in start order. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	stages []Stage
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer { return &Timer{stages: make([]Stage, 0, 4)} }

// Begin starts a stage and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, Stage{Name: name, Start: time.Now()})
	return len(t.stages) - 1
}

// End finishes the stage at idx.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.stages) {
		return
	}
	s := &t.stages[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
}

// Time runs fn as a stage named name. A failing fn leaves its error as the
// note.
func (t *Timer) Time(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = err.Error()
	}
	t.End(idx, note)
	return err
}

// Stages returns a copy of the recorded stages.
func (t *Timer) Stages() []Stage {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Stage(nil), t.stages...)
}

// StageReport is the serializable form of a Stage.
type StageReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the recorded stages.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Stages  []StageReport `json:"stages"`
}

// Report returns the stages and their total in milliseconds.
func (t *Timer) Report() Report {
	stages := t.Stages()
	if len(stages) == 0 {
		return Report{}
	}
	r := Report{Stages: make([]StageReport, len(stages))}
	var total time.Duration
	for i, s := range stages {
		total += s.Dur
		r.Stages[i] = StageReport{Name: s.Name, DurationMS: millis(s.Dur), Note: s.Note}
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders the report as an aligned table.
func (r Report) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			sb.WriteString("  // " + s.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

// Summary is shorthand for t.Report().Summary().
func (t *Timer) Summary() string { return t.Report().Summary() }

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
