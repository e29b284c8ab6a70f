package keel

import "go.uber.org/zap"

// Option configures a Container at construction time.
type Option func(*containerImpl)

// WithLogger sets the structured logger used for container diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *containerImpl) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMiddleware installs middleware before any entry is registered.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *containerImpl) {
		for _, mw := range middleware {
			c.middleware.add(mw)
		}
	}
}

// RegisterOption is a configuration option for Register.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	protected bool
	asValue   bool
	dependsOn []string
}

// Protected marks the entry immutable: later Register and Remove calls for
// it become no-ops.
func Protected() RegisterOption {
	return func(c *registerConfig) {
		c.protected = true
	}
}

// AsValue stores a func value as-is instead of treating it as a factory.
func AsValue() RegisterOption {
	return func(c *registerConfig) {
		c.asValue = true
	}
}

// DependsOn declares identifiers that Boot must resolve before this entry.
func DependsOn(ids ...string) RegisterOption {
	return func(c *registerConfig) {
		c.dependsOn = append(c.dependsOn, ids...)
	}
}

// mergeOptions folds register options into one config.
func mergeOptions(opts []RegisterOption) registerConfig {
	var cfg registerConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
