package form

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a named form type over object
type Constructor func(object interface{}, args ...interface{}) (*Form, error)

// Registry form constructors by type name, e.g. `PetForm`
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// DefaultRegistry the registry package level Register and Build use
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register registers c under name, replacing a previous registration
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = c
}

func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[name]
	return c, ok
}

// Names returns the registered type names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs a form of the named type
func (r *Registry) Build(name string, object interface{}, args ...interface{}) (*Form, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormType, name)
	}
	return c(object, args...)
}

func Register(name string, c Constructor) {
	DefaultRegistry.Register(name, c)
}

func Build(name string, object interface{}, args ...interface{}) (*Form, error) {
	return DefaultRegistry.Build(name, object, args...)
}
