package keel

import (
	"fmt"
)

// Resolve with type safety.
func Resolve[T any](c Container, id string) (T, error) {
	var zero T

	instance, err := c.Get(id)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ErrTypeMismatch(id, instance)
	}

	return typed, nil
}

// Must resolves or panics - use only during startup.
func Must[T any](c Container, id string) T {
	instance, err := Resolve[T](c, id)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", id, err))
	}

	return instance
}

// ResolveType resolves the entry registered under the identifier of T.
//
// Example:
//
//	logger, err := keel.ResolveType[*zap.Logger](c)
func ResolveType[T any](c Container) (T, error) {
	return Resolve[T](c, IDOf[T]())
}

// RegisterFactory is a convenience wrapper for typed factories.
func RegisterFactory[T any](c Container, id string, factory func(Container) (T, error), opts ...RegisterOption) error {
	return c.Register(id, Factory(func(c Container) (any, error) {
		return factory(c)
	}), opts...)
}

// RegisterValue registers a pre-built instance. Func values are stored as
// values rather than invoked as factories.
func RegisterValue[T any](c Container, id string, instance T, opts ...RegisterOption) error {
	return c.Register(id, instance, append(opts, AsValue())...)
}

// RegisterType registers a factory under the identifier of T.
func RegisterType[T any](c Container, factory func(Container) (T, error), opts ...RegisterOption) error {
	return RegisterFactory(c, IDOf[T](), factory, opts...)
}
