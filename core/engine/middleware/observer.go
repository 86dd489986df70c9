package middleware

import (
	"context"

	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

// NewObserverMiddleware attaches observer to the context of every call so the
// drivers can open spans and record metrics against it. A context that
// already carries an observer is left alone.
func NewObserverMiddleware(observer observability.Provider) Config {
	attach := func(ctx context.Context) context.Context {
		if observer == nil || observability.ObserverFromContext(ctx) != nil {
			return ctx
		}
		return observability.ContextWithObserver(ctx, observer)
	}

	return Config{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request Request) (*ai.Response, error) {
				return next(attach(ctx), request)
			}
		},
		Stream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, request Request) (*ai.DeltaStream, error) {
				return next(attach(ctx), request)
			}
		},
	}
}
