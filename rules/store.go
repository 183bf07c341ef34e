package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DeltaStore supplies the per-year deltas a ruleset chain is built from.
type DeltaStore interface {
	// Years lists the reporting years with a stored delta, ascending.
	Years(ctx context.Context) ([]int, error)

	// Load returns the delta for one year.
	Load(ctx context.Context, year int) (YearDelta, error)
}

// InMemoryDeltaStore implements DeltaStore over a map.
// Safe for concurrent use.
type InMemoryDeltaStore struct {
	deltas map[int]YearDelta
	mu     sync.RWMutex
}

// NewInMemoryDeltaStore creates a store seeded with deltas.
func NewInMemoryDeltaStore(deltas ...YearDelta) *InMemoryDeltaStore {
	s := &InMemoryDeltaStore{deltas: make(map[int]YearDelta, len(deltas))}
	for _, d := range deltas {
		s.deltas[d.Year] = d.Clone()
	}
	return s
}

// Put stores delta under its year, replacing any previous delta.
func (s *InMemoryDeltaStore) Put(delta YearDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deltas[delta.Year] = delta.Clone()
}

func (s *InMemoryDeltaStore) Years(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	years := make([]int, 0, len(s.deltas))
	for y := range s.deltas {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (s *InMemoryDeltaStore) Load(ctx context.Context, year int) (YearDelta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.deltas[year]
	if !exists {
		return YearDelta{}, fmt.Errorf("no delta stored for year %d", year)
	}
	return d.Clone(), nil
}
