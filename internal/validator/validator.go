// Package validator keeps a registry of labelled predicates evaluated
// against classes and instances on demand. Results are never persisted.
package validator

import (
	"sort"
	"sync"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// AnyClass registers a predicate against every class
const AnyClass = "*"

// Subject is what a predicate is evaluated against. Instance is nil when a
// class itself is being evaluated.
type Subject struct {
	Class      *domain.Class
	Ancestors  []*domain.Class
	Instance   *domain.Instance
	Attributes []*domain.Attribute
	Values     map[string][]string
}

// Lineage returns the class name followed by its ancestors' names
func (s Subject) Lineage() []string {
	names := make([]string, 0, len(s.Ancestors)+1)
	if s.Class != nil {
		names = append(names, s.Class.Name)
	}
	for _, a := range s.Ancestors {
		names = append(names, a.Name)
	}
	return names
}

// Predicate decides a tri-state property of a subject. Implementations
// must not modify the subject.
type Predicate interface {
	Evaluate(s Subject) domain.TriState
}

// PredicateFunc adapts a function to Predicate
type PredicateFunc func(s Subject) domain.TriState

// Evaluate calls f(s)
func (f PredicateFunc) Evaluate(s Subject) domain.TriState {
	return f(s)
}

// Definition is a registered predicate
type Definition struct {
	Label     string
	ClassName string
	Predicate Predicate
}

// Registry holds validator definitions keyed by label
type Registry struct {
	mu      sync.RWMutex
	byLabel map[string]*Definition
	byClass map[string][]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byLabel: make(map[string]*Definition),
		byClass: make(map[string][]string),
	}
}

// Register adds a predicate for a class name or AnyClass. Labels are unique.
func (r *Registry) Register(className, label string, p Predicate) error {
	if label == "" {
		return apperror.NewInvalidArgument(label, "validator label is required")
	}
	if className == "" {
		return apperror.NewInvalidArgument(label, "validator %s needs a class name or %q", label, AnyClass)
	}
	if p == nil {
		return apperror.NewInvalidArgument(label, "validator %s has no predicate", label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLabel[label]; exists {
		return apperror.NewInvalidArgument(label, "validator %s is already registered", label)
	}
	r.byLabel[label] = &Definition{Label: label, ClassName: className, Predicate: p}
	r.byClass[className] = append(r.byClass[className], label)
	return nil
}

// Unregister removes a definition, reporting whether it existed
func (r *Registry) Unregister(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.byLabel[label]
	if !ok {
		return false
	}
	delete(r.byLabel, label)
	labels := r.byClass[def.ClassName]
	for i, l := range labels {
		if l == label {
			r.byClass[def.ClassName] = append(labels[:i:i], labels[i+1:]...)
			break
		}
	}
	return true
}

// Definitions returns every definition sorted by label
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.byLabel))
	for _, def := range r.byLabel {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Evaluate runs every predicate registered for the subject's class, one of
// its ancestors or AnyClass
func (r *Registry) Evaluate(s Subject) map[string]domain.TriState {
	r.mu.RLock()
	var defs []*Definition
	for _, name := range append(s.Lineage(), AnyClass) {
		for _, label := range r.byClass[name] {
			defs = append(defs, r.byLabel[label])
		}
	}
	r.mu.RUnlock()

	results := make(map[string]domain.TriState, len(defs))
	for _, def := range defs {
		results[def.Label] = def.Predicate.Evaluate(s)
	}
	return results
}
