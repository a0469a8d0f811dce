// Package window provides the bounded FIFO used for rolling chart windows.
package window

// DefaultCapacity is the number of points kept per source.
const DefaultCapacity = 100

// Buffer is a bounded FIFO. Appending past capacity evicts the oldest
// element; the remaining elements keep their arrival order.
// A capacity <= 0 makes the buffer unbounded.
//
// Buffer is not safe for concurrent use; owners guard it.
type Buffer[T any] struct {
	items    []T
	capacity int
}

// New creates a buffer holding at most capacity elements.
func New[T any](capacity int) *Buffer[T] {
	initial := capacity
	if initial <= 0 {
		initial = 16
	}
	return &Buffer[T]{
		items:    make([]T, 0, initial),
		capacity: capacity,
	}
}

// Append adds v and reports whether the oldest element was evicted.
func (b *Buffer[T]) Append(v T) bool {
	evicted := false
	if b.capacity > 0 && len(b.items) >= b.capacity {
		var zero T
		b.items[0] = zero // release for GC
		b.items = b.items[1:]
		evicted = true
	}
	b.items = append(b.items, v)
	return evicted
}

// Items returns a copy of the contents, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Tail returns a copy of the newest n elements, oldest first.
func (b *Buffer[T]) Tail(n int) []T {
	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]T, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Each calls fn for every element, oldest first, without copying.
func (b *Buffer[T]) Each(fn func(T)) {
	for _, v := range b.items {
		fn(v)
	}
}

// Last returns the newest element.
func (b *Buffer[T]) Last() (T, bool) {
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

func (b *Buffer[T]) Len() int { return len(b.items) }

// Cap returns the configured capacity (<= 0 when unbounded).
func (b *Buffer[T]) Cap() int { return b.capacity }

// Reset drops every element.
func (b *Buffer[T]) Reset() {
	clear(b.items)
	b.items = b.items[:0]
}
