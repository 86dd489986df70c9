package middleware

import (
	"context"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Request is the unit threaded through a middleware chain.
type Request struct {
	Provider ai.Provider
	Model    string // effective model: options["model"] or the driver default
	Messages []ai.Message
	Options  ai.Options
}

// SendFunc performs a blocking chat call.
type SendFunc func(ctx context.Context, request Request) (*ai.Response, error)

// StreamFunc starts a streamed chat call.
type StreamFunc func(ctx context.Context, request Request) (*ai.DeltaStream, error)

// Middleware wraps the next SendFunc in the chain.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware.
type StreamMiddleware func(next StreamFunc) StreamFunc

// Config pairs a send middleware with its optional streaming counterpart.
// A nil Stream means streaming calls bypass this entry; a nil Send means send
// calls do.
type Config struct {
	Send   Middleware
	Stream StreamMiddleware
}

// Wrap returns a ChatDriver that routes Send and Stream through the given
// middlewares. The first entry is the outermost wrapper. Without middlewares
// driver is returned unchanged.
func Wrap(driver ai.ChatDriver, middlewares ...Config) ai.ChatDriver {
	if len(middlewares) == 0 {
		return driver
	}
	return &chainedDriver{
		ChatDriver: driver,
		send:       buildSendChain(driver, middlewares),
		stream:     buildStreamChain(driver, middlewares),
	}
}

type chainedDriver struct {
	ai.ChatDriver
	send   SendFunc
	stream StreamFunc
}

func (d *chainedDriver) Send(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.Response, error) {
	return d.send(ctx, d.request(messages, options))
}

func (d *chainedDriver) Stream(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.DeltaStream, error) {
	return d.stream(ctx, d.request(messages, options))
}

func (d *chainedDriver) request(messages []ai.Message, options ai.Options) Request {
	return Request{
		Provider: d.Provider(),
		Model:    options.Model(d.Config().Model),
		Messages: messages,
		Options:  options,
	}
}

func buildSendChain(driver ai.ChatDriver, middlewares []Config) SendFunc {
	var chain SendFunc = func(ctx context.Context, request Request) (*ai.Response, error) {
		return driver.Send(ctx, request.Messages, request.Options)
	}

	// Reverse so middlewares[0] runs first.
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Send != nil {
			chain = middlewares[i].Send(chain)
		}
	}
	return chain
}

func buildStreamChain(driver ai.ChatDriver, middlewares []Config) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, request Request) (*ai.DeltaStream, error) {
		return driver.Stream(ctx, request.Messages, request.Options)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}
