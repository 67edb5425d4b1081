// Package syncx provides small generic synchronisation helpers: a guarded
// value and a bounded, guarded cache.
package syncx

import "sync"

// RWGuard holds one value behind a RWMutex. T should be a value type or
// immutable, since Get hands out copies.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Swap stores v and returns the previous value.
func (g *RWGuard[T]) Swap(v T) (old T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old, g.value = g.value, v
	return old
}
