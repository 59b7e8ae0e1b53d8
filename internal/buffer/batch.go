// Package buffer provides the bounded batch buffer sinks accumulate into.
package buffer

// Batch is a fixed-capacity buffer that never evicts: Append fails once it
// is full and the owner must drain it with Reset. It is not goroutine-safe;
// each Batch has exactly one owner.
type Batch[T any] struct {
	items    []T
	capacity int
}

// NewBatch creates a batch with the given capacity.
func NewBatch[T any](capacity int) *Batch[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Batch[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds v and reports whether there was room for it.
func (b *Batch[T]) Append(v T) bool {
	if len(b.items) == b.capacity {
		return false
	}
	b.items = append(b.items, v)
	return true
}

// Items returns the buffered values in insertion order. The slice is only
// valid until the next Append or Reset.
func (b *Batch[T]) Items() []T {
	return b.items
}

// Reset empties the batch, keeping its storage.
func (b *Batch[T]) Reset() {
	clear(b.items)
	b.items = b.items[:0]
}

// Len returns the current number of values.
func (b *Batch[T]) Len() int {
	return len(b.items)
}

// Cap returns the batch capacity.
func (b *Batch[T]) Cap() int {
	return b.capacity
}

// Full reports whether Len equals Cap.
func (b *Batch[T]) Full() bool {
	return len(b.items) == b.capacity
}

// Empty reports whether the batch holds nothing.
func (b *Batch[T]) Empty() bool {
	return len(b.items) == 0
}
