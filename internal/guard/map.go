package guard

import "sync"

// Map is one keyed partition guarded by its own RWMutex.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// View runs fn on one entry under the shared lock. Use it when V holds
// references that must not escape the partition.
func (m *Map[K, V]) View(key K, fn func(v V, ok bool)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	fn(v, ok)
}

func (m *Map[K, V]) Has(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok
}

// Put inserts or overwrites key.
func (m *Map[K, V]) Put(key K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = v
}

// Delete removes key. Missing keys are a no-op.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Update applies fn to the current entry under the exclusive lock.
// Returning keep=false removes the entry.
func (m *Map[K, V]) Update(key K, fn func(cur V, ok bool) (next V, keep bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[key]
	next, keep := fn(cur, ok)
	if !keep {
		delete(m.items, key)
		return
	}
	m.items[key] = next
}

// DeleteFunc removes every entry for which pred returns true and reports
// the removed keys.
func (m *Map[K, V]) DeleteFunc(pred func(K, V) bool) []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []K
	for k, v := range m.items {
		if pred(k, v) {
			delete(m.items, k)
			removed = append(removed, k)
		}
	}
	return removed
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]K, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a shallow copy of the partition.
func (m *Map[K, V]) Snapshot() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[K]V, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

// Range visits entries under the shared lock until fn returns false.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.items {
		if !fn(k, v) {
			return
		}
	}
}
