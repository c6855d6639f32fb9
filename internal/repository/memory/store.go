// Package memory provides in-memory repository implementations. They back
// the local run mode and the service test suites; durable persistence is
// an external collaborator behind the same interfaces.
package memory

import (
	"context"
	"sync"

	ierr "github.com/streamforge/billing/internal/errors"
)

// InMemoryStore is a generic keyed store with copy-on-read semantics left
// to the callers. All operations are safe for concurrent use.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("item already exists: %s", id).
			WithHint("An item with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

// Get returns the item, or the zero value and false when absent.
func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item not found: %s", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

// Upsert stores the item regardless of prior existence.
func (s *InMemoryStore[T]) Upsert(_ context.Context, id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item
}

func (s *InMemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item not found: %s", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// List returns every item that matches the filter, in arbitrary order.
func (s *InMemoryStore[T]) List(_ context.Context, match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if match == nil || match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Count returns the number of items that match the filter.
func (s *InMemoryStore[T]) Count(_ context.Context, match func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if match == nil || match(item) {
			n++
		}
	}
	return n
}
