package fuzztests

import (
	"bytes"
	"testing"

	"tracefold/internal/diag"
	"tracefold/internal/traceio"
)

const maxFuzzInput = 1 << 16

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}

func FuzzReaderEvents(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		bag := diag.NewBag(64)
		var last uint64
		for ev, err := range traceio.Events(bytes.NewReader(input), diag.BagReporter{Bag: bag}) {
			if err != nil {
				return
			}
			if ev == nil {
				t.Fatal("nil event without error")
			}
			if ev.Seq <= last {
				t.Fatalf("sequence went from %d to %d", last, ev.Seq)
			}
			last = ev.Seq
		}
	})
}
