// Package handlers drives a set of trace handlers over one event stream.
//
// Every handler sees every event in arrival order. Once the stream ends the
// handlers are finalized concurrently; each only touches its own state.
package handlers

import (
	"context"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"

	"tracefold/internal/event"
	"tracefold/internal/trace"
)

// Handler consumes one trace at a time.
type Handler interface {
	Name() string
	Reset()
	HandleEvent(ev *event.Raw) error
	Finalize(ctx context.Context) error
}

// cancelCheckInterval bounds how many events are fed between ctx checks.
const cancelCheckInterval = 1024

// Engine feeds events to its handlers.
type Engine struct {
	handlers []Handler
}

// NewEngine returns an engine over hs, fed in the given order.
func NewEngine(hs ...Handler) *Engine {
	return &Engine{handlers: hs}
}

// Handlers returns the engine's handlers.
func (e *Engine) Handlers() []Handler { return e.handlers }

// Run resets every handler, feeds the stream, and finalizes. A stream error
// or a handler error stops the run.
func (e *Engine) Run(ctx context.Context, events iter.Seq2[*event.Raw, error]) error {
	ctx, span := trace.StartSpan(ctx, trace.ScopeHandler, "handlers.run")
	e.Reset()
	n, err := e.Feed(ctx, events)
	if err == nil {
		err = e.Finalize(ctx)
	}
	span.Count("events", n).EndErr(err)
	return err
}

// Reset resets every handler.
func (e *Engine) Reset() {
	for _, h := range e.handlers {
		h.Reset()
	}
}

// Feed hands every event to every handler and returns the number of events
// consumed. It does not reset or finalize.
func (e *Engine) Feed(ctx context.Context, events iter.Seq2[*event.Raw, error]) (int, error) {
	_, span := trace.StartSpan(ctx, trace.ScopeHandler, "handlers.feed")
	n, err := e.feed(ctx, events)
	span.Count("events", n).EndErr(err)
	if err != nil {
		return n, err
	}
	return n, ctx.Err()
}

func (e *Engine) feed(ctx context.Context, events iter.Seq2[*event.Raw, error]) (int, error) {
	n := 0
	for ev, err := range events {
		if err != nil {
			return n, err
		}
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		n++
		for _, h := range e.handlers {
			if err := h.HandleEvent(ev); err != nil {
				return n, fmt.Errorf("%s: event #%d: %w", h.Name(), ev.Seq, err)
			}
		}
	}
	return n, nil
}

// Finalize seals all handlers concurrently and returns the first error.
func (e *Engine) Finalize(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, trace.ScopeHandler, "handlers.finalize")
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range e.handlers {
		g.Go(func() error {
			if err := h.Finalize(gctx); err != nil {
				return fmt.Errorf("%s: finalize: %w", h.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	span.EndErr(err)
	return err
}
