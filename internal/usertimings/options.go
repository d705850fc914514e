package usertimings

import (
	"slices"
	"strconv"
	"strings"

	"tracefold/internal/event"
)

const (
	// CategoryUserTiming carries performance.mark and performance.measure.
	CategoryUserTiming = "blink.user_timing"
	// CategoryConsole carries console.time / console.timeEnd.
	CategoryConsole = "blink.console"
	// AnyCategory accepts every category.
	AnyCategory = "*"

	// NameTimeStamp is the instant event emitted by console.timeStamp.
	NameTimeStamp = "TimeStamp"
	// NameUserTimingMeasure is the complete event emitted for a measure that
	// carries an application trace id in args.traceId.
	NameUserTimingMeasure = "UserTiming::Measure"
)

// Options controls which events the handler correlates.
type Options struct {
	// Categories lists accepted categories; AnyCategory accepts all.
	Categories []string
	// TimestampEventName names instants that are always kept as points.
	TimestampEventName string
	// MeasureEventName names events indexed by args.traceId.
	MeasureEventName string
	// MaxDiagnostics bounds the diagnostic bag.
	MaxDiagnostics int
}

// DefaultOptions mirrors the user timings track.
func DefaultOptions() Options {
	return Options{
		Categories:         []string{CategoryUserTiming, CategoryConsole},
		TimestampEventName: NameTimeStamp,
		MeasureEventName:   NameUserTimingMeasure,
		MaxDiagnostics:     100,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if len(o.Categories) == 0 {
		o.Categories = def.Categories
	}
	if o.TimestampEventName == "" {
		o.TimestampEventName = def.TimestampEventName
	}
	if o.MeasureEventName == "" {
		o.MeasureEventName = def.MeasureEventName
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = def.MaxDiagnostics
	}
	return o
}

// Accepts reports whether any of the event's categories is configured.
func (o Options) Accepts(ev *event.Raw) bool {
	if slices.Contains(o.Categories, AnyCategory) {
		return true
	}
	for _, cat := range ev.Categories() {
		if slices.Contains(o.Categories, cat) {
			return true
		}
	}
	return false
}

// Fingerprint is a stable description of the options that affect results.
func (o Options) Fingerprint() string {
	o = o.normalized()
	cats := slices.Clone(o.Categories)
	slices.Sort(cats)
	return strings.Join(cats, ",") + "|" + o.TimestampEventName + "|" + o.MeasureEventName +
		"|" + strconv.Itoa(o.MaxDiagnostics)
}
