package csync

import (
	"iter"
	"slices"
	"sync"
)

// LazySlice is a thread-safe slice whose initial contents are loaded lazily
// by a provider function the first time the slice is accessed.
type LazySlice[T any] struct {
	inner []T
	load  func() []T
	once  sync.Once
	mu    sync.RWMutex
}

// NewLazySlice creates a slice that is populated by the given function on
// first use.
func NewLazySlice[T any](load func() []T) *LazySlice[T] {
	return &LazySlice[T]{load: load}
}

func (s *LazySlice[T]) ensure() {
	s.once.Do(func() {
		items := s.load()
		s.mu.Lock()
		s.inner = items
		s.mu.Unlock()
	})
}

// Append adds an item to the end of the slice.
func (s *LazySlice[T]) Append(item T) {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner = append(s.inner, item)
}

// Set replaces the item at the given index.
func (s *LazySlice[T]) Set(i int, item T) {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < len(s.inner) {
		s.inner[i] = item
	}
}

// Len returns the number of items in the slice.
func (s *LazySlice[T]) Len() int {
	s.ensure()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inner)
}

// Seq returns an iterator over the values.
func (s *LazySlice[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range s.Seq2() {
			if !yield(v) {
				return
			}
		}
	}
}

// Seq2 returns an iterator over index-value pairs.
func (s *LazySlice[T]) Seq2() iter.Seq2[int, T] {
	s.ensure()
	s.mu.RLock()
	inner := slices.Clone(s.inner)
	s.mu.RUnlock()
	return func(yield func(int, T) bool) {
		for i, v := range inner {
			if !yield(i, v) {
				return
			}
		}
	}
}
