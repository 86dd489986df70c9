package memory

import (
	"sync"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/ai/drivers"
)

// Config holds the manager settings.
type Config struct {
	// DefaultDriver is used when Driver is called with an empty name.
	// Empty means openai.
	DefaultDriver string `mapstructure:"default_driver" yaml:"default_driver"`

	// Store names the backing store for diagnostics (memory, file, postgres).
	Store string `mapstructure:"store" yaml:"store"`
}

// Manager hands out one memory Driver per provider, all sharing one Store.
// Drivers are built on first use and reused afterwards.
type Manager struct {
	store   Store
	drivers *utils.InstanceCache[*Driver]

	mu  sync.RWMutex
	cfg Config
}

// NewManager returns a manager over store.
func NewManager(store Store, cfg Config) *Manager {
	return &Manager{
		store:   store,
		drivers: utils.NewInstanceCache[*Driver](),
		cfg:     cfg,
	}
}

// Driver returns the driver for name, building it on first use. An empty
// name selects the default driver. Unknown names fail with an
// *ai.UnsupportedDriverError and leave the cache untouched.
func (m *Manager) Driver(name string) (*Driver, error) {
	if name == "" {
		name = m.DefaultName()
	}
	formatter, err := drivers.FormatterFor("memory", name)
	if err != nil {
		return nil, err
	}
	return m.drivers.Get(formatter.Provider().String(), func() (*Driver, error) {
		return NewDriver(formatter, m.store), nil
	})
}

// Default returns the default driver.
func (m *Manager) Default() (*Driver, error) {
	return m.Driver("")
}

// SetDefaultDriver changes the driver used for empty names. The name is
// validated but no driver is built.
func (m *Manager) SetDefaultDriver(name string) error {
	provider, ok := ai.ParseProvider(name)
	if !ok {
		return &ai.UnsupportedDriverError{Kind: "memory", Name: name}
	}
	m.mu.Lock()
	m.cfg.DefaultDriver = provider.String()
	m.mu.Unlock()
	return nil
}

// DefaultName returns the configured default driver name, or openai.
func (m *Manager) DefaultName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg.DefaultDriver == "" {
		return ai.ProviderOpenAI.String()
	}
	return m.cfg.DefaultDriver
}

// Config returns a copy of the current settings.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Cached reports whether a driver for name has been built. Aliases and case
// resolve the same way Driver does.
func (m *Manager) Cached(name string) bool {
	provider, ok := ai.ParseProvider(name)
	if !ok {
		return false
	}
	return m.drivers.Has(provider.String())
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}
