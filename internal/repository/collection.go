// Package repository owns the canonical in-memory collections of a tenant and
// the pure transitions applied to them. It never persists anything itself.
package repository

// Collection is an ordered, id-keyed set of records. Readers always receive
// copies; the only way to change it is Replace.
type Collection[T any] struct {
	items []T
	id    func(T) string
}

func NewCollection[T any](items []T, id func(T) string) *Collection[T] {
	c := &Collection[T]{id: id}
	c.Replace(items)
	return c
}

func (c *Collection[T]) Items() []T {
	return append([]T{}, c.items...)
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

func (c *Collection[T]) Find(id string) (T, bool) {
	for _, item := range c.items {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Replace adopts items as the new canonical state. The slice is copied.
func (c *Collection[T]) Replace(items []T) {
	c.items = append([]T{}, items...)
}

// Upsert returns a copy of items with rec replacing the record sharing its id,
// or with rec prepended when no such record exists.
func (c *Collection[T]) Upsert(items []T, rec T) []T {
	out := make([]T, 0, len(items)+1)
	found := false
	for _, item := range items {
		if c.id(item) == c.id(rec) {
			out = append(out, rec)
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found {
		out = append([]T{rec}, out...)
	}
	return out
}

// Without returns a copy of items minus the record with id. Absent ids are a no-op.
func (c *Collection[T]) Without(items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if c.id(item) != id {
			out = append(out, item)
		}
	}
	return out
}
