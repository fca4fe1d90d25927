package guard

import "sync"

// Cell guards a single value behind its own RWMutex.
type Cell[T any] struct {
	mu sync.RWMutex
	v  T
}

func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Load returns the current value under a shared lock.
func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
}

// View runs fn with a shared lock held.
func (c *Cell[T]) View(fn func(T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.v)
}

// Update runs fn with the exclusive lock held.
func (c *Cell[T]) Update(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.v)
}
