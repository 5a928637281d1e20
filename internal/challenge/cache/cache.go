// Package cache provides coarse memoization for derived views.
//
// Granularity is deliberately coarse: any mutating operation invalidates the
// entire namespace rather than tracking which keys a write affects. The
// guarantee this buys is simple: a read issued after a mutating write has
// completed never observes pre-write state.
package cache

import (
	"context"
	"strings"
	"sync"
)

// Manager memoizes computed values keyed by operation and arguments.
type Manager struct {
	mu         sync.Mutex
	generation uint64
	entries    map[string]any
}

// NewManager creates an empty cache manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]any)}
}

// Key builds a cache key from an operation name and its arguments.
func Key(op string, args ...string) string {
	if len(args) == 0 {
		return op
	}
	return op + ":" + strings.Join(args, ":")
}

// InvalidateAll drops every memoized value. Computations already in flight
// when the invalidation happens will not repopulate the cache.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.entries = make(map[string]any)
}

// GetOrCompute returns the memoized value for key, computing and storing it
// on a miss. A value computed concurrently with an invalidation is returned
// to its caller but not stored, so later reads recompute against post-write
// state.
func (m *Manager) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (any, error)) (any, error) {
	m.mu.Lock()
	if value, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return value, nil
	}
	generation := m.generation
	m.mu.Unlock()

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.generation == generation {
		m.entries[key] = value
	}
	m.mu.Unlock()
	return value, nil
}

// GetOrCompute is the typed wrapper around Manager.GetOrCompute.
func GetOrCompute[T any](ctx context.Context, m *Manager, key string, compute func(context.Context) (T, error)) (T, error) {
	value, err := m.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}
