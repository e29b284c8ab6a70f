package keel

import (
	"fmt"
	"sync"
)

// Lazy wraps an entry that is resolved on first access.
// This is useful for breaking circular dependencies or deferring
// resolution of expensive entries until they're actually needed.
type Lazy[T any] struct {
	container Container
	id        string
	once      sync.Once
	value     T
	err       error
	resolved  bool
}

// NewLazy creates a new lazy handle.
func NewLazy[T any](container Container, id string) *Lazy[T] {
	return &Lazy[T]{
		container: container,
		id:        id,
	}
}

// Get resolves the entry and returns it.
// The resolution happens only once; subsequent calls return the cached value.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = Resolve[T](l.container, l.id)
		l.resolved = l.err == nil
	})

	return l.value, l.err
}

// MustGet resolves the entry and returns it, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy entry %s failed: %v", l.id, err))
	}

	return value
}

// IsResolved returns true if the entry has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved
}

// ID returns the identifier of the entry.
func (l *Lazy[T]) ID() string {
	return l.id
}

// OptionalLazy wraps an optional entry that is resolved on first access.
// Returns the zero value without error if the entry is not registered.
type OptionalLazy[T any] struct {
	container Container
	id        string
	once      sync.Once
	value     T
	err       error
	found     bool
}

// NewOptionalLazy creates a new optional lazy handle.
func NewOptionalLazy[T any](container Container, id string) *OptionalLazy[T] {
	return &OptionalLazy[T]{
		container: container,
		id:        id,
	}
}

// Get resolves the entry and returns it.
func (l *OptionalLazy[T]) Get() (T, error) {
	l.once.Do(func() {
		if !l.container.Has(l.id) {
			return
		}

		l.value, l.err = Resolve[T](l.container, l.id)
		l.found = l.err == nil
	})

	return l.value, l.err
}

// IsFound returns true if the entry was found (only valid after Get).
func (l *OptionalLazy[T]) IsFound() bool {
	return l.found
}

// ID returns the identifier of the entry.
func (l *OptionalLazy[T]) ID() string {
	return l.id
}
