// Package surface holds what the drawing-surface adapters share: the chalk
// palette and an ordered primitive store.
package surface

import (
	"sync"

	"blackboard/entities/shape"
)

// Chalk palette shared by every surface
const (
	StrokeColor = "#ffffff"
	StrokeWidth = 2.0
	LabelFill   = "#0066cc"
	CurveColor  = "#00ff00"
	Background  = "#1a1a1a"
)

// Store keeps native primitives by id in insertion order
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

// NewStore creates an empty store
func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

// Put inserts or replaces a primitive. Replacing keeps its position.
func (s *Store[T]) Put(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// Has reports whether id is stored
func (s *Store[T]) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Get returns the primitive for id
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Delete removes id and reports whether it was present
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Reset removes everything
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = nil
}

// Len returns the number of primitives
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns the primitives in insertion order
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// ViewportOrDefault returns vp, or shape.DefaultViewport when vp has no area
func ViewportOrDefault(vp shape.Viewport) shape.Viewport {
	if vp.Width <= 0 || vp.Height <= 0 {
		return shape.DefaultViewport
	}
	return vp
}
