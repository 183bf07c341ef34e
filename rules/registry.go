package rules

import (
	"sort"
	"sync"
)

// Registry is the set of rules applicable to one reporting year, keyed by
// code. New years are derived with Compose rather than by mutating an
// existing registry, so a registry can be shared by concurrent runs.
type Registry struct {
	rules map[string]RuleDefinition
	mu    sync.RWMutex
}

// NewRegistry builds a registry from an initial set of definitions.
// It fails on the first invalid or duplicate definition.
func NewRegistry(defs ...RuleDefinition) (*Registry, error) {
	r := &Registry{rules: make(map[string]RuleDefinition, len(defs))}
	for _, d := range defs {
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// newRegistryFromMap takes ownership of m; callers must not retain it.
func newRegistryFromMap(m map[string]RuleDefinition) *Registry {
	return &Registry{rules: m}
}

// Add inserts d under d.Code. An existing code fails with DuplicateRuleError
// and leaves the registry unchanged.
func (r *Registry) Add(d RuleDefinition) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[d.Code]; exists {
		return &DuplicateRuleError{Code: d.Code}
	}
	r.rules[d.Code] = d.clone()
	return nil
}

// Get returns the definition registered under code.
func (r *Registry) Get(code string) (RuleDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.rules[code]
	if !exists {
		return RuleDefinition{}, &RuleNotFoundError{Code: code}
	}
	return d.clone(), nil
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rules[code]
	return exists
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}

// Codes returns the registered codes, sorted for stable output. Rules must
// not rely on any ordering.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.rules))
	for code := range r.rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Rules returns copies of every definition, sorted by code.
func (r *Registry) Rules() []RuleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]RuleDefinition, 0, len(r.rules))
	for _, d := range r.rules {
		defs = append(defs, d.clone())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}

// ToMap returns an independent code -> definition map. Changes to the
// returned map never reach the registry.
func (r *Registry) ToMap() map[string]RuleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := make(map[string]RuleDefinition, len(r.rules))
	for code, d := range r.rules {
		m[code] = d.clone()
	}
	return m
}
