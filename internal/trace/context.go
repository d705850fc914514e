package trace

import "context"

type ctxKey struct{}

// binding is what a context carries: the tracer and the innermost span
// started through StartSpan.
type binding struct {
	tracer Tracer
	span   *Span
}

func bound(ctx context.Context) binding {
	if ctx != nil {
		if b, ok := ctx.Value(ctxKey{}).(binding); ok {
			return b
		}
	}
	return binding{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return bound(ctx).tracer
}

// WithTracer attaches t to ctx with no current span.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, binding{tracer: t})
}

// SpanFrom returns the current span of ctx, or nil.
func SpanFrom(ctx context.Context) *Span {
	return bound(ctx).span
}

// StartSpan begins a span under the current one and returns a context in
// which it is current. Disabled spans leave ctx unchanged.
func StartSpan(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	b := bound(ctx)
	span := Begin(b.tracer, b.span, scope, name)
	if span.ID() == 0 {
		return ctx, span
	}
	return context.WithValue(ctx, ctxKey{}, binding{tracer: b.tracer, span: span}), span
}

// Note emits an instant event under the current span of ctx.
func Note(ctx context.Context, scope Scope, name, detail string) {
	b := bound(ctx)
	Point(b.tracer, b.span, scope, name, detail)
}
