// Package provider defines the value-provider contract used by the seeder
// and a registry of built-in rules.
//
// A rule is a pure function of its random source and parameters: given the
// same source state and the same parameters it must return the same value.
// The seeder hands every call a source derived from the run seed, which is
// what makes generation reproducible.
//
// Usage:
//
//	reg := provider.Default()
//	_ = reg.Register("sku", func(r *rand.Rand, p provider.Params) (any, error) {
//	    return fmt.Sprintf("SKU-%05d", r.IntN(100000)), nil
//	})
package provider

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// Func produces one value. Randomness must come only from r.
type Func func(r *rand.Rand, p Params) (any, error)

// UnknownRuleError is returned when no provider is registered for a rule.
type UnknownRuleError struct {
	Rule string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q", e.Rule)
}

// Registry maps rule identifiers to providers. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Func)}
}

// Default returns a registry holding every built-in rule.
func Default() *Registry {
	r := NewRegistry()
	for id, fn := range builtins {
		r.rules[id] = fn
	}
	return r
}

// Register adds or replaces the provider for id.
func (r *Registry) Register(id string, fn Func) error {
	if id == "" {
		return errors.New("rule id cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("rule %q: provider cannot be nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[id] = fn
	return nil
}

// Lookup returns the provider registered for id.
func (r *Registry) Lookup(id string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.rules[id]
	return fn, ok
}

// HasRule reports whether id is registered.
func (r *Registry) HasRule(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Generate runs the provider registered for id.
func (r *Registry) Generate(rng *rand.Rand, id string, p Params) (any, error) {
	fn, ok := r.Lookup(id)
	if !ok {
		return nil, &UnknownRuleError{Rule: id}
	}
	return fn(rng, p)
}

// Rules lists the registered identifiers in sorted order.
func (r *Registry) Rules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
