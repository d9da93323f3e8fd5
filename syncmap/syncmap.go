// Package syncmap provides a map synchronized with a mutex.
package syncmap

import (
	"iter"
	"sync"
)

// Map is a regular map but synchronized with a mutex.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// New returns a new syncmap.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value for a key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok
}

// LoadOrNew returns the value for a key, first storing the result of mk if
// the key is absent. loaded reports whether the value already existed.
// mk is called with the map locked.
func (m *Map[K, V]) LoadOrNew(key K, mk func() V) (v V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, loaded = m.m[key]
	if !loaded {
		v = mk()
		m.m[key] = v
	}
	return v, loaded
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}

// All iterates over a snapshot of the map's elements.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.mu.Lock()
		keys := make([]K, 0, len(m.m))
		vals := make([]V, 0, len(m.m))
		for k, v := range m.m {
			keys = append(keys, k)
			vals = append(vals, v)
		}
		m.mu.Unlock()
		for i, k := range keys {
			if !yield(k, vals[i]) {
				return
			}
		}
	}
}
