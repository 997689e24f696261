package preprocess

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps event names to rule sets.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]RuleSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]RuleSet)}
}

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// aliased is implemented by rule sets that also answer to other event
// names.
type aliased interface {
	Aliases() []string
}

func keys(rs RuleSet) []string {
	out := []string{registryKey(rs.Name())}
	if a, ok := rs.(aliased); ok {
		for _, alias := range a.Aliases() {
			out = append(out, registryKey(alias))
		}
	}
	return out
}

// Register adds a rule set under its name and any aliases. It panics if a
// key is already taken.
func (r *Registry) Register(rs RuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys(rs) {
		if _, exists := r.rules[key]; exists {
			panic(fmt.Sprintf("rule set already registered: %s", key))
		}
		r.rules[key] = rs
	}
}

// Put adds or replaces a rule set.
func (r *Registry) Put(rs RuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys(rs) {
		r.rules[key] = rs
	}
}

// Get returns the rule set registered under exactly name, ignoring case.
func (r *Registry) Get(name string) (RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rules[registryKey(name)]
	return rs, ok
}

// Lookup resolves the rule set for an event. An exact match wins; otherwise
// the longest registered name contained in the event name is used, so
// "Convention 2025 - San Francisco" resolves to "Convention 2025". Events
// matching nothing get Default.
func (r *Registry) Lookup(event string) RuleSet {
	if rs, ok := r.Get(event); ok {
		return rs
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	key := registryKey(event)
	var (
		best    RuleSet
		bestKey string
	)
	for name, rs := range r.rules {
		if name == "" || !strings.Contains(key, name) {
			continue
		}
		if len(name) > len(bestKey) || (len(name) == len(bestKey) && name < bestKey) {
			best, bestKey = rs, name
		}
	}
	if best == nil {
		return Default()
	}
	return best
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.rules))
	names := make([]string, 0, len(r.rules))
	for _, rs := range r.rules {
		if !seen[rs.Name()] {
			seen[rs.Name()] = true
			names = append(names, rs.Name())
		}
	}
	sort.Strings(names)
	return names
}

var builtins = NewRegistry()

// Register adds a built-in rule set. Event packages call it from init.
func Register(rs RuleSet) { builtins.Register(rs) }

// Lookup resolves an event against the built-in rule sets.
func Lookup(event string) RuleSet { return builtins.Lookup(event) }

// Names lists the built-in rule sets.
func Names() []string { return builtins.Names() }

// Builtins returns a registry holding a copy of the built-in rule sets,
// which callers may extend without affecting other users.
func Builtins() *Registry {
	builtins.mu.RLock()
	defer builtins.mu.RUnlock()

	out := NewRegistry()
	for k, v := range builtins.rules {
		out.rules[k] = v
	}
	return out
}
