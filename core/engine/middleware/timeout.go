package middleware

import (
	"context"
	"iter"
	"time"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// NewTimeoutMiddleware bounds every chat call by timeout.
//
// For Send the deadline covers the whole call. For Stream it covers the
// complete lifetime of the stream: the context is canceled when iteration
// finishes, fails or is abandoned, not when the first byte arrives. A shorter
// deadline already on the caller's context still wins.
func NewTimeoutMiddleware(timeout time.Duration) Config {
	return Config{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildSendTimeout(timeout time.Duration) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) (*ai.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request Request) (*ai.DeltaStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			return stream.Wrap(func(source iter.Seq2[ai.ContentDelta, error]) iter.Seq2[ai.ContentDelta, error] {
				return func(yield func(ai.ContentDelta, error) bool) {
					defer cancel()
					for delta, err := range source {
						if !yield(delta, err) || err != nil {
							return
						}
					}
				}
			}), nil
		}
	}
}
