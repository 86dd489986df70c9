package drivers

import (
	"net/http"

	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/ai/anthropic"
	"github.com/bupple-inc/ai-engine/providers/ai/gemini"
	"github.com/bupple-inc/ai-engine/providers/ai/openai"
)

// Options are shared construction settings applied to whichever driver the
// table builds.
type Options struct {
	HTTPClient *http.Client
	BaseURL    string
}

// Option customises driver construction.
type Option func(*Options)

// WithHTTPClient injects the HTTP client used by the built driver.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithBaseURL overrides the provider endpoint of the built driver.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

type entry struct {
	formatter ai.Formatter
	newChat   func(cfg ai.ProviderConfig, opts Options) ai.ChatDriver
}

var table = map[ai.Provider]entry{
	ai.ProviderOpenAI: {
		formatter: openai.Formatter{},
		newChat: func(cfg ai.ProviderConfig, opts Options) ai.ChatDriver {
			return openai.New(cfg, openai.WithHTTPClient(opts.HTTPClient), openai.WithBaseURL(opts.BaseURL))
		},
	},
	ai.ProviderClaude: {
		formatter: anthropic.Formatter{},
		newChat: func(cfg ai.ProviderConfig, opts Options) ai.ChatDriver {
			return anthropic.New(cfg, anthropic.WithHTTPClient(opts.HTTPClient), anthropic.WithBaseURL(opts.BaseURL))
		},
	},
	ai.ProviderGemini: {
		formatter: gemini.Formatter{},
		newChat: func(cfg ai.ProviderConfig, opts Options) ai.ChatDriver {
			return gemini.New(cfg, gemini.WithHTTPClient(opts.HTTPClient), gemini.WithBaseURL(opts.BaseURL))
		},
	},
}

// Formatter returns the formatter for provider.
func Formatter(provider ai.Provider) (ai.Formatter, bool) {
	e, ok := table[provider]
	return e.formatter, ok
}

// FormatterFor resolves a driver name to its formatter. Unknown names return
// an *ai.UnsupportedDriverError of the given kind.
func FormatterFor(kind, name string) (ai.Formatter, error) {
	provider, ok := ai.ParseProvider(name)
	if !ok {
		return nil, &ai.UnsupportedDriverError{Kind: kind, Name: name}
	}
	formatter, _ := Formatter(provider)
	return formatter, nil
}

// NewChatDriver builds the chat driver for provider.
func NewChatDriver(provider ai.Provider, cfg ai.ProviderConfig, opts ...Option) (ai.ChatDriver, error) {
	e, ok := table[provider]
	if !ok {
		return nil, &ai.UnsupportedDriverError{Kind: "chat", Name: string(provider)}
	}
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return e.newChat(cfg, options), nil
}

// Supported lists the providers in the table.
func Supported() []ai.Provider {
	return ai.Providers()
}
