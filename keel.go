// Package keel provides a service container with alias resolution,
// freeze-on-first-resolve semantics, protection flags, a parameter table and
// depth-limited autowiring over an explicit constructor table.
//
// A Container is built once per process or request and passed around
// explicitly. Its maps are guarded by a mutex, but factories run without any
// lock held so they may call back into the container; a container is meant
// to be driven by one goroutine at a time.
package keel

import "context"

// Container is a keyed registry of values and lazily invoked factories.
type Container interface {
	// Register stores value under id. A nil value asks the container to
	// autowire id from a constructor declared with Declare.
	Register(id string, value any, opts ...RegisterOption) error

	// Get resolves id (directly or through an alias). Factories are invoked
	// once; their result replaces them and the entry becomes frozen.
	Get(id string) (any, error)

	// Has reports whether id resolves to an entry, without side effects.
	Has(id string) bool

	// Remove drops an unprotected entry and the aliases pointing at it.
	Remove(id string) bool

	// Protect marks an entry immutable.
	Protect(id string) bool

	SetAlias(alias, id string) AliasResult
	SetGlobalAlias(alias, id string) AliasResult
	ProtectAlias(alias string) bool
	RemoveAlias(alias string) bool
	LastAliasStatus() bool

	SetParameter(key string, value any) error
	GetParameter(key string) (any, error)
	HasParameter(key string) bool
	RemoveParameter(key string) bool

	// Entries returns all registered identifiers in registration order.
	Entries() []string

	// Inspect returns diagnostic information about an entry.
	Inspect(id string) EntryInfo

	// Use adds middleware around every Get.
	Use(middleware Middleware)

	// Boot resolves every pending factory in dependency order.
	Boot(ctx context.Context) error
}

// Factory creates an entry's value on first resolution.
type Factory func(c Container) (any, error)

// New creates an empty container. The container registers itself under
// IDOf[Container]() and the global alias "container".
func New(opts ...Option) Container {
	return newContainer(opts...)
}
