package engine

import (
	"net/http"

	"github.com/bupple-inc/ai-engine/core/config"
	"github.com/bupple-inc/ai-engine/core/engine/middleware"
	"github.com/bupple-inc/ai-engine/core/parse"
	"github.com/bupple-inc/ai-engine/core/sse"
	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/ai/drivers"
	"github.com/bupple-inc/ai-engine/providers/memory"
	"github.com/bupple-inc/ai-engine/providers/memory/inmemory"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

// Engine is the single entry point to chat drivers, conversation memory, the
// SSE writer and the JSON helper. It is safe for concurrent use.
type Engine struct {
	cfg         config.Config
	chats       *utils.InstanceCache[ai.ChatDriver]
	memory      *memory.Manager
	store       memory.Store
	httpClient  *http.Client
	observer    observability.Provider
	middlewares []middleware.Config
}

// Option customises an Engine.
type Option func(*Engine)

// WithStore sets the history store shared by the memory drivers. Without it
// (and without WithMemoryManager) records are kept in process memory.
func WithStore(store memory.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMemoryManager injects a ready manager; WithStore is then ignored.
func WithMemoryManager(manager *memory.Manager) Option {
	return func(e *Engine) {
		e.memory = manager
	}
}

// WithHTTPClient sets the client shared by every chat driver.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithObserver attaches observer to every chat call. It runs as the outermost
// middleware.
func WithObserver(observer observability.Provider) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithMiddleware appends middlewares applied to every chat driver the engine
// builds, first entry outermost.
func WithMiddleware(middlewares ...middleware.Config) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, middlewares...)
	}
}

// New validates cfg and builds an engine. Chat drivers are created lazily on
// first use.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		chats: utils.NewInstanceCache[ai.ChatDriver](),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.observer != nil {
		e.middlewares = append([]middleware.Config{middleware.NewObserverMiddleware(e.observer)}, e.middlewares...)
	}

	if e.memory == nil {
		if e.store == nil {
			e.store = inmemory.New()
		}
		e.memory = memory.NewManager(e.store, memory.Config{
			DefaultDriver: cfg.Default.Memory,
			Store:         cfg.Memory.Store,
		})
	}

	return e, nil
}

// Chat returns the chat driver for name, building it on first use. An empty
// name selects default.chat. Unknown names fail with an
// *ai.UnsupportedDriverError of kind "chat" and nothing is cached.
func (e *Engine) Chat(name string) (ai.ChatDriver, error) {
	provider, err := e.resolve(name)
	if err != nil {
		return nil, err
	}

	return e.chats.Get(provider.String(), func() (ai.ChatDriver, error) {
		cfg, _ := e.cfg.Provider(provider)

		var opts []drivers.Option
		if e.httpClient != nil {
			opts = append(opts, drivers.WithHTTPClient(e.httpClient))
		}

		driver, err := drivers.NewChatDriver(provider, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return middleware.Wrap(driver, e.middlewares...), nil
	})
}

// Memory returns the memory manager.
func (e *Engine) Memory() *memory.Manager {
	return e.memory
}

// MemoryDriver is shorthand for Memory().Driver(name).
func (e *Engine) MemoryDriver(name string) (*memory.Driver, error) {
	return e.memory.Driver(name)
}

// SSE returns a Server-Sent Events writer over w.
func (e *Engine) SSE(w http.ResponseWriter, opts ...sse.Option) *sse.Writer {
	return sse.New(w, opts...)
}

// ParseJSON extracts a JSON object or array from model output. See parse.JSON.
func (e *Engine) ParseJSON(text string) any {
	return parse.JSON(text)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// ProviderConfig returns the configured settings of the named chat driver.
// An empty name selects default.chat.
func (e *Engine) ProviderConfig(name string) (ai.ProviderConfig, error) {
	provider, err := e.resolve(name)
	if err != nil {
		return ai.ProviderConfig{}, err
	}
	cfg, _ := e.cfg.Provider(provider)
	return cfg, nil
}

func (e *Engine) resolve(name string) (ai.Provider, error) {
	if name == "" {
		name = e.cfg.Default.Chat
	}
	if name == "" {
		return ai.ProviderOpenAI, nil
	}
	provider, ok := ai.ParseProvider(name)
	if !ok {
		return "", &ai.UnsupportedDriverError{Kind: "chat", Name: name}
	}
	return provider, nil
}
