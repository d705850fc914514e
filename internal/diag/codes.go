package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Loading
	LoadInfo           Code = 1000
	LoadMalformedEvent Code = 1001
	LoadUnknownPhase   Code = 1002

	// Pairing
	PairInfo                   Code = 2000
	PairUnmatchedEnd           Code = 2001
	PairAbandonedBegin         Code = 2002
	PairNegativeDuration       Code = 2003
	PairDuplicateCorrelationID Code = 2004

	// Metadata
	MetaInfo            Code = 3000
	MetaConflictingName Code = 3001
)

var codeDescription = map[Code]string{
	UnknownCode:                "Unknown error",
	LoadInfo:                   "Load information",
	LoadMalformedEvent:         "Malformed trace event",
	LoadUnknownPhase:           "Unknown event phase",
	PairInfo:                   "Pairing information",
	PairUnmatchedEnd:           "End event without a matching begin",
	PairAbandonedBegin:         "Begin event never closed",
	PairNegativeDuration:       "Negative interval duration",
	PairDuplicateCorrelationID: "Duplicate correlation id",
	MetaInfo:                   "Metadata information",
	MetaConflictingName:        "Conflicting process or thread name",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOAD%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PAIR%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("META%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
