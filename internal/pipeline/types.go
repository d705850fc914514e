package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage describes a step of analyzing one trace.
type Stage string

const (
	// StageLoad opens the file and checks the cache.
	StageLoad Stage = "load"
	// StageCorrelate decodes events and feeds the handlers.
	StageCorrelate Stage = "correlate"
	// StageFinalize seals the handlers.
	StageFinalize Stage = "finalize"
	// StageReport builds the summary and stores it in the cache.
	StageReport Stage = "report"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageLoad, StageCorrelate, StageFinalize, StageReport}

// Fraction returns how far through a file's analysis stage is, in [0,1).
func (s Stage) Fraction() float64 {
	switch s {
	case StageLoad:
		return 0.1
	case StageCorrelate:
		return 0.3
	case StageFinalize:
		return 0.7
	case StageReport:
		return 0.9
	default:
		return 0
	}
}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is running.
	StatusWorking Status = "working"
	// StatusDone indicates the file was analyzed.
	StatusDone Status = "done"
	// StatusError indicates the analysis failed.
	StatusError Status = "error"
)

// Event reports progress for a file, or for the whole run when File is empty.
type Event struct {
	RunID   uuid.UUID
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
