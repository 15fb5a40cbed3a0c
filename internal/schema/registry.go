package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry owns every Schema by value, indexed by name.
//
// Schemas reference each other only by name, so self-referential and
// mutually-referential entities need no pointer cycles: relation chains are
// resolved by lookup, one schema at a time.
//
// Registration happens at startup; afterwards the registry is read-only and
// safe for concurrent parses.
type Registry struct {
	schemas map[string]Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry, optionally pre-populated.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{
		schemas: make(map[string]Schema),
	}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a schema. Names must be unique and non-empty.
func (r *Registry) Register(s Schema) error {
	if strings.TrimSpace(s.Name()) == "" {
		return fmt.Errorf("schema name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Name()]; exists {
		return fmt.Errorf("schema %s is already registered", s.Name())
	}
	r.schemas[s.Name()] = s
	return nil
}

// Get retrieves a schema by name.
func (r *Registry) Get(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	return s, ok
}

// Names returns all schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve walks a dotted relation chain ("a.b.c") starting from the schema
// named start, applying each schema's relation aliasing before looking up
// the next one. It returns the schema describing the final relation target.
func (r *Registry) Resolve(start, relationPath string) (Schema, bool) {
	current, ok := r.Get(start)
	if !ok {
		return Schema{}, false
	}
	if relationPath == "" {
		return current, true
	}

	for _, segment := range strings.Split(relationPath, ".") {
		if segment == "" {
			return Schema{}, false
		}
		next, ok := r.Get(current.RelationTarget(segment))
		if !ok {
			return Schema{}, false
		}
		current = next
	}
	return current, true
}

// Check verifies that every declared relation alias points at a registered
// schema. It returns one error per dangling alias, in sorted order.
func (r *Registry) Check() []error {
	var errs []error
	for _, name := range r.Names() {
		s, _ := r.Get(name)
		for _, rel := range s.Relations() {
			if _, ok := r.Get(rel[1]); !ok {
				errs = append(errs, fmt.Errorf("schema %s: relation %s targets unknown schema %s", name, rel[0], rel[1]))
			}
		}
	}
	return errs
}
