package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits periodic events so a stalled run is visible in the trace:
// heartbeats that keep coming without span ends point at a stuck file.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	probe    func() string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat starts the heartbeat goroutine. probe, when set, supplies
// the detail of each beat (e.g. events handled so far). Returns nil when
// tracing is disabled or interval <= 0; Stop is safe on nil.
func StartHeartbeat(tracer Tracer, interval time.Duration, probe func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		probe:    probe,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beat uint64
	for {
		select {
		case <-ticker.C:
			beat++
			detail := fmt.Sprintf("#%d", beat)
			if h.probe != nil {
				detail += " " + h.probe()
			}
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Seq:    nextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeCommand,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: detail,
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop ends the heartbeat goroutine and waits for it.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
