// Package rulesets maintains one composed rule registry per reporting year.
// Each year's registry is derived from the previous year's by that year's
// delta, starting from a base registry, and is built once and cached.
package rulesets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/lacvalidate/rules"
)

// ErrYearNotFound is returned for a reporting year with no delta.
var ErrYearNotFound = errors.New("reporting year not found")

// Manager holds the year deltas and the registries composed from them.
type Manager struct {
	base   *rules.Registry
	deltas map[int]rules.YearDelta
	years  []int
	cache  RegistryCache
	mu     sync.RWMutex
}

// NewManager validates every delta and composes the full year chain, so a
// malformed ruleset fails here rather than during a validation run.
// A nil base starts the chain from an empty registry.
func NewManager(base *rules.Registry, deltas ...rules.YearDelta) (*Manager, error) {
	return NewManagerWithCache(NewInMemoryRegistryCache(), base, deltas...)
}

// NewManagerWithCache is NewManager with a caller-supplied cache.
func NewManagerWithCache(cache RegistryCache, base *rules.Registry, deltas ...rules.YearDelta) (*Manager, error) {
	if base == nil {
		var err error
		if base, err = rules.NewRegistry(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		base:   base,
		deltas: make(map[int]rules.YearDelta, len(deltas)),
		cache:  cache,
	}
	for _, d := range deltas {
		if err := ValidateDelta(d); err != nil {
			return nil, err
		}
		if _, dup := m.deltas[d.Year]; dup {
			return nil, fmt.Errorf("duplicate delta for year %d", d.Year)
		}
		m.deltas[d.Year] = d.Clone()
		m.years = append(m.years, d.Year)
	}
	sort.Ints(m.years)

	if len(m.years) > 0 {
		m.mu.Lock()
		_, err := m.buildLocked(m.years[len(m.years)-1])
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadFromStore builds a manager from every year in store.
func LoadFromStore(ctx context.Context, store rules.DeltaStore, base *rules.Registry) (*Manager, error) {
	years, err := store.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}

	deltas := make([]rules.YearDelta, 0, len(years))
	for _, y := range years {
		d, err := store.Load(ctx, y)
		if err != nil {
			return nil, fmt.Errorf("failed to load year %d: %w", y, err)
		}
		deltas = append(deltas, d)
	}
	return NewManager(base, deltas...)
}

// Registry returns the composed registry for year.
func (m *Manager) Registry(year int) (*rules.Registry, error) {
	m.mu.RLock()
	if reg, ok := m.cache.Get(year); ok {
		m.mu.RUnlock()
		return reg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildLocked(year)
}

// buildLocked composes year from the previous year's registry, building
// earlier years first if they are not cached. Callers hold m.mu.
func (m *Manager) buildLocked(year int) (*rules.Registry, error) {
	if reg, ok := m.cache.Get(year); ok {
		return reg, nil
	}
	delta, ok := m.deltas[year]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrYearNotFound, year)
	}

	prev := m.base
	if i := sort.SearchInts(m.years, year); i > 0 {
		var err error
		if prev, err = m.buildLocked(m.years[i-1]); err != nil {
			return nil, err
		}
	}

	reg, err := rules.Compose(prev, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to compose ruleset for %d: %w", year, err)
	}
	m.cache.Set(year, reg)
	return reg, nil
}

// Years returns the supported reporting years, ascending.
func (m *Manager) Years() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]int, len(m.years))
	copy(out, m.years)
	return out
}

// Latest returns the most recent year and its registry.
func (m *Manager) Latest() (int, *rules.Registry, error) {
	m.mu.RLock()
	n := len(m.years)
	var year int
	if n > 0 {
		year = m.years[n-1]
	}
	m.mu.RUnlock()

	if n == 0 {
		return 0, nil, ErrYearNotFound
	}
	reg, err := m.Registry(year)
	return year, reg, err
}

// UpdateYear replaces (or adds) the delta for delta.Year and recomposes that
// year and every later one. Registries already handed out are unaffected.
func (m *Manager) UpdateYear(delta rules.YearDelta) error {
	if err := ValidateDelta(delta); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, existed := m.deltas[delta.Year]; !existed {
		years := make([]int, len(m.years), len(m.years)+1)
		copy(years, m.years)
		years = append(years, delta.Year)
		sort.Ints(years)
		m.years = years
	}
	m.deltas[delta.Year] = delta.Clone()

	m.cache.InvalidateFrom(delta.Year)
	_, err := m.buildLocked(m.years[len(m.years)-1])
	return err
}
