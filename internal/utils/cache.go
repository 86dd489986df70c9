package utils

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// InstanceCache builds values lazily by name and keeps them for reuse.
// Concurrent first requests for the same name share one build; a failed build
// stores nothing, so the next request retries.
type InstanceCache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	group singleflight.Group
}

// NewInstanceCache returns an empty cache.
func NewInstanceCache[T any]() *InstanceCache[T] {
	return &InstanceCache[T]{items: make(map[string]T)}
}

// Get returns the cached value for name, calling build at most once for
// concurrent callers when it is missing.
func (c *InstanceCache[T]) Get(name string, build func() (T, error)) (T, error) {
	if item, ok := c.lookup(name); ok {
		return item, nil
	}

	value, err, _ := c.group.Do(name, func() (any, error) {
		if item, ok := c.lookup(name); ok {
			return item, nil
		}
		item, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[name] = item
		c.mu.Unlock()
		return item, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

// Has reports whether name has been built.
func (c *InstanceCache[T]) Has(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// Names lists the cached names in no particular order.
func (c *InstanceCache[T]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.items))
	for name := range c.items {
		names = append(names, name)
	}
	return names
}

func (c *InstanceCache[T]) lookup(name string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[name]
	return item, ok
}
