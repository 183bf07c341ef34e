package rulesets

import (
	"sync"

	"github.com/liamcoop/lacvalidate/rules"
)

// RegistryCache memoizes composed registries by reporting year.
// This allows swapping the in-memory cache for a shared one.
type RegistryCache interface {
	// Get returns the cached registry for year, if any.
	Get(year int) (*rules.Registry, bool)

	// Set stores the composed registry for year.
	Set(year int, reg *rules.Registry)

	// InvalidateFrom drops year and every later year, since each later
	// registry was composed from it.
	InvalidateFrom(year int)
}

// InMemoryRegistryCache is a map-backed RegistryCache.
// Thread-safe for concurrent access.
type InMemoryRegistryCache struct {
	registries map[int]*rules.Registry
	mu         sync.RWMutex
}

// NewInMemoryRegistryCache creates an empty cache.
func NewInMemoryRegistryCache() *InMemoryRegistryCache {
	return &InMemoryRegistryCache{registries: make(map[int]*rules.Registry)}
}

func (c *InMemoryRegistryCache) Get(year int) (*rules.Registry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, ok := c.registries[year]
	return reg, ok
}

func (c *InMemoryRegistryCache) Set(year int, reg *rules.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registries[year] = reg
}

func (c *InMemoryRegistryCache) InvalidateFrom(year int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for y := range c.registries {
		if y >= year {
			delete(c.registries, y)
		}
	}
}
