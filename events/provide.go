package events

import (
	"go.uber.org/zap"

	"github.com/xraph/keel"
)

// Alias is the global container alias of the bus.
const Alias = "events"

// Provide registers a bus in c that is created on first resolution. The
// entry is protected and reachable through the global alias "events". When
// c holds a *zap.Logger the bus logs through it unless opts set another.
// Calling Provide again keeps the bus already registered.
func Provide(c keel.Container, opts ...Option) error {
	id := keel.IDOf[*Bus]()

	if c.Has(id) {
		return alias(c, id)
	}

	err := c.Register(id, func(c keel.Container) (*Bus, error) {
		var all []Option

		if c.Has(keel.IDOf[*zap.Logger]()) {
			logger, err := keel.ResolveType[*zap.Logger](c)
			if err != nil {
				return nil, err
			}
			all = append(all, WithLogger(logger))
		}

		return New(append(all, opts...)...), nil
	}, keel.Protected())
	if err != nil {
		return err
	}

	return alias(c, id)
}

func alias(c keel.Container, id string) error {
	if result := c.SetGlobalAlias(Alias, id); !result.OK() {
		return result.Err()
	}

	return nil
}

// FromContainer resolves the bus registered by Provide.
func FromContainer(c keel.Container) (*Bus, error) {
	return keel.Resolve[*Bus](c, Alias)
}
