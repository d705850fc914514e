package event

// Phase is the `ph` discriminator of a Trace Event Format record.
type Phase string

const (
	PhaseBegin              Phase = "B"
	PhaseEnd                Phase = "E"
	PhaseComplete           Phase = "X"
	PhaseInstant            Phase = "I"
	PhaseInstantLegacy      Phase = "i"
	PhaseCounter            Phase = "C"
	PhaseAsyncNestableBegin Phase = "b"
	PhaseAsyncNestableEnd   Phase = "e"
	PhaseAsyncNestableInst  Phase = "n"
	PhaseAsyncBegin         Phase = "S"
	PhaseAsyncEnd           Phase = "F"
	PhaseFlowStart          Phase = "s"
	PhaseFlowStep           Phase = "t"
	PhaseFlowEnd            Phase = "f"
	PhaseSample             Phase = "P"
	PhaseObjectCreated      Phase = "N"
	PhaseObjectSnapshot     Phase = "O"
	PhaseObjectDestroyed    Phase = "D"
	PhaseMetadata           Phase = "M"
	PhaseMemoryDumpGlobal   Phase = "V"
	PhaseMemoryDumpProcess  Phase = "v"
	PhaseMark               Phase = "R"
	PhaseClockSync          Phase = "c"
)

// Kind is the closed set of event shapes the correlation handlers act on.
// Every Phase maps to exactly one Kind.
type Kind uint8

const (
	// KindOther covers phases no handler pairs or records as points.
	KindOther Kind = iota
	// KindAsyncBegin opens an async interval.
	KindAsyncBegin
	// KindAsyncEnd closes an async interval.
	KindAsyncEnd
	// KindInstant is a zero-duration event.
	KindInstant
	// KindMark is a navigation/user mark.
	KindMark
	// KindComplete carries its own duration.
	KindComplete
	// KindMetadata names processes and threads.
	KindMetadata
)

// Known reports whether p is a phase of the Trace Event Format.
func (p Phase) Known() bool {
	switch p {
	case PhaseBegin, PhaseEnd, PhaseComplete, PhaseInstant, PhaseInstantLegacy,
		PhaseCounter, PhaseAsyncNestableBegin, PhaseAsyncNestableEnd,
		PhaseAsyncNestableInst, PhaseAsyncBegin, PhaseAsyncEnd, PhaseFlowStart,
		PhaseFlowStep, PhaseFlowEnd, PhaseSample, PhaseObjectCreated,
		PhaseObjectSnapshot, PhaseObjectDestroyed, PhaseMetadata,
		PhaseMemoryDumpGlobal, PhaseMemoryDumpProcess, PhaseMark, PhaseClockSync:
		return true
	default:
		return false
	}
}

// Kind classifies the phase.
func (p Phase) Kind() Kind {
	switch p {
	case PhaseAsyncNestableBegin, PhaseAsyncBegin:
		return KindAsyncBegin
	case PhaseAsyncNestableEnd, PhaseAsyncEnd:
		return KindAsyncEnd
	case PhaseInstant, PhaseInstantLegacy, PhaseAsyncNestableInst:
		return KindInstant
	case PhaseMark:
		return KindMark
	case PhaseComplete:
		return KindComplete
	case PhaseMetadata:
		return KindMetadata
	default:
		return KindOther
	}
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindAsyncBegin:
		return "async-begin"
	case KindAsyncEnd:
		return "async-end"
	case KindInstant:
		return "instant"
	case KindMark:
		return "mark"
	case KindComplete:
		return "complete"
	case KindMetadata:
		return "metadata"
	default:
		return "other"
	}
}
