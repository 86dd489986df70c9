// Package observability defines the tracing, metrics and logging contracts
// used by the engine drivers and memory stores.
//
// A [Provider] travels through a [context.Context] via [ContextWithObserver]
// and an active [Span] via [ContextWithSpan]. Components retrieve them with
// [ObserverFromContext] and [SpanFromContext] and skip every hook when none is
// attached. Attribute keys and metric names live in semconv.go.
package observability
