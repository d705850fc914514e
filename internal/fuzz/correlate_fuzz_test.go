package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"tracefold/internal/event"
	"tracefold/internal/handlers"
	"tracefold/internal/handlers/meta"
	"tracefold/internal/testkit"
	"tracefold/internal/traceio"
	"tracefold/internal/usertimings"
)

// correlateTimeout bounds a single pass; exceeding it points at a hang.
const correlateTimeout = 5 * time.Second

// maxMicro keeps timestamps far from int64 overflow in end time sums.
const maxMicro = event.Micro(1) << 50

func saneTimes(events []*event.Raw) bool {
	for _, ev := range events {
		if ev.Timestamp > maxMicro || ev.Timestamp < -maxMicro {
			return false
		}
		if ev.Duration != nil && (*ev.Duration > maxMicro || *ev.Duration < -maxMicro) {
			return false
		}
	}
	return true
}

func FuzzCorrelateLaws(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		events, err := traceio.ReadAllFrom(bytes.NewReader(clampInput(input)))
		if err != nil || !saneTimes(events) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), correlateTimeout)
		defer cancel()

		ut := usertimings.NewHandler(usertimings.Options{Categories: []string{usertimings.AnyCategory}})
		engine := handlers.NewEngine(ut, meta.NewHandler(0))
		done := make(chan error, 1)
		go func() {
			done <- engine.Run(ctx, func(yield func(*event.Raw, error) bool) {
				for _, ev := range events {
					if !yield(ev, nil) {
						return
					}
				}
			})
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("engine run: %v", err)
			}
		case <-ctx.Done():
			t.Fatalf("correlation did not finish within %v (%d events)", correlateTimeout, len(events))
		}

		data, err := ut.Data()
		if err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckIntervals(data); err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckStats(data); err != nil {
			t.Fatal(err)
		}
	})
}
