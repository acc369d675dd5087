// Package cache holds the keyed registries the map facade uses to track
// what is currently attached to a map.
package cache

import "sync"

// Registry is a set of values keyed by a unique ID. Iteration follows
// insertion order; re-adding an existing key keeps its position.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	index map[K]int
	keys  []K
	vals  []V
}

// NewRegistry creates an empty Registry
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		index: make(map[K]int),
	}
}

// Add stores v under key. It returns false if key was already present, in
// which case the stored value is replaced.
func (r *Registry[K, V]) Add(key K, v V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[key]; ok {
		r.vals[i] = v
		return false
	}
	r.index[key] = len(r.keys)
	r.keys = append(r.keys, key)
	r.vals = append(r.vals, v)
	return true
}

// Get retrieves a value by key
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[key]; ok {
		return r.vals[i], true
	}
	var zero V
	return zero, false
}

// Has reports whether key is present
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[key]
	return ok
}

// Delete removes key and reports whether it was present
func (r *Registry[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[key]
	if !ok {
		return false
	}
	delete(r.index, key)
	r.keys = append(r.keys[:i], r.keys[i+1:]...)
	r.vals = append(r.vals[:i], r.vals[i+1:]...)
	for j := i; j < len(r.keys); j++ {
		r.index[r.keys[j]] = j
	}
	return true
}

// Len returns the number of entries
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Values returns a snapshot of the stored values in insertion order
func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]V, len(r.vals))
	copy(out, r.vals)
	return out
}

// Reset clears the registry and returns what it held
func (r *Registry[K, V]) Reset() []V {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.vals
	r.index = make(map[K]int)
	r.keys = nil
	r.vals = nil
	return out
}
