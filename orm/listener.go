package orm

import (
	"reflect"
	"sync"
)

type listenerRegistry struct {
	mu      sync.RWMutex
	entries map[interface{}][]Listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{entries: map[interface{}][]Listener{}}
}

func listenerKey(value interface{}) (interface{}, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, false
	}
	return value, true
}

func (r *listenerRegistry) add(value interface{}, l Listener) bool {
	key, ok := listenerKey(value)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries[key] {
		if existing.Name() == l.Name() {
			return false
		}
	}
	r.entries[key] = append(r.entries[key], l)
	return true
}

func (r *listenerRegistry) remove(value interface{}, name string) bool {
	key, ok := listenerKey(value)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	listeners := r.entries[key]
	for idx, existing := range listeners {
		if existing.Name() == name {
			listeners = append(listeners[:idx:idx], listeners[idx+1:]...)
			if len(listeners) == 0 {
				delete(r.entries, key)
			} else {
				r.entries[key] = listeners
			}
			return true
		}
	}
	return false
}

func (r *listenerRegistry) forget(value interface{}) {
	if key, ok := listenerKey(value); ok {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
	}
}

// committed notifies the commit listeners of values
func (r *listenerRegistry) committed(values map[interface{}]bool) {
	for value := range values {
		for _, l := range r.get(value) {
			if cl, ok := l.(CommitListener); ok {
				cl.AfterCommit(value)
			}
		}
	}
}

func (r *listenerRegistry) get(value interface{}) []Listener {
	key, ok := listenerKey(value)
	if !ok {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Listener(nil), r.entries[key]...)
}

// AddListener registers l to run before every save of value, a pointer to a model.
// It returns false when value already holds a listener with the same name.
func (db *DB) AddListener(value interface{}, l Listener) bool {
	return db.listeners.add(value, l)
}

// RemoveListener drops the named listener of value
func (db *DB) RemoveListener(value interface{}, name string) bool {
	return db.listeners.remove(value, name)
}

// Listeners returns the listeners registered for value
func (db *DB) Listeners(value interface{}) []Listener {
	return db.listeners.get(value)
}
