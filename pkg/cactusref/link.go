package cactusref

import "slices"

// Link is a directed edge to a control block. Two links are equal when they
// point at the same allocation; the wrapped value never takes part in the
// comparison, so a Link can key a Go map.
type Link[T any] struct {
	box *rcBox[T]
}

// Links is the deduplicated set of outgoing edges of one control block.
// Iteration follows insertion order.
type Links[T any] struct {
	index map[Link[T]]struct{}
	order []Link[T]
}

// Insert adds l and reports whether it was not already present.
func (s *Links[T]) Insert(l Link[T]) bool {
	if _, ok := s.index[l]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[Link[T]]struct{})
	}
	s.index[l] = struct{}{}
	s.order = append(s.order, l)
	return true
}

// Remove deletes l and reports whether it was present.
func (s *Links[T]) Remove(l Link[T]) bool {
	if _, ok := s.index[l]; !ok {
		return false
	}
	delete(s.index, l)
	if i := slices.Index(s.order, l); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// Contains reports whether l is in the set.
func (s *Links[T]) Contains(l Link[T]) bool {
	_, ok := s.index[l]
	return ok
}

// Len returns the number of distinct edges.
func (s *Links[T]) Len() int {
	return len(s.order)
}

// Each calls fn for every edge until fn returns false.
func (s *Links[T]) Each(fn func(Link[T]) bool) {
	for _, l := range s.order {
		if !fn(l) {
			return
		}
	}
}

// Clear drops every edge.
func (s *Links[T]) Clear() {
	s.index = nil
	s.order = nil
}
