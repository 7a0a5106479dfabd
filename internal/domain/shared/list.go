package shared

import "iter"

// List is a live, read-only view over a slice owned by someone else.
//
// The view follows the owner: appends, removals and in-place writes made by the
// owner are visible through an existing List. Elements are returned by value,
// so callers can never write through the view.
type List[T any] struct {
	src *[]T
}

// NewList returns a view over *src. The owner keeps the pointer and mutates through it.
func NewList[T any](src *[]T) List[T] {
	return List[T]{src: src}
}

// ListOf returns a view over a private copy of items. Used for derived, one-off results.
func ListOf[T any](items ...T) List[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return List[T]{src: &cp}
}

func (l List[T]) items() []T {
	if l.src == nil {
		return nil
	}
	return *l.src
}

// Len returns the current number of elements.
func (l List[T]) Len() int {
	return len(l.items())
}

// IsEmpty reports whether the view has no elements.
func (l List[T]) IsEmpty() bool {
	return l.Len() == 0
}

// At returns the element at index i. It panics if i is out of range, like a slice.
func (l List[T]) At(i int) T {
	return l.items()[i]
}

// All iterates over index/element pairs in order.
func (l List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range l.items() {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Values iterates over elements in order.
func (l List[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range l.items() {
			if !yield(v) {
				return
			}
		}
	}
}

// Slice returns a point-in-time copy of the elements.
func (l List[T]) Slice() []T {
	items := l.items()
	out := make([]T, len(items))
	copy(out, items)
	return out
}
