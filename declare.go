package keel

import (
	"fmt"
	"reflect"
)

// ConstructorOption configures how a constructor is declared
type ConstructorOption interface {
	applyConstructor(*constructorConfig)
}

// constructorConfig holds configuration for constructor declaration
type constructorConfig struct {
	id           string         // Overrides the result type identifier
	paramNames   []string       // Parameter-table keys for positional params
	asTypes      []reflect.Type // Also declare under these interface types
	aliases      []string       // Provide only: aliases for the entry
	registerOpts []RegisterOption
}

// constructorOptionFunc is a function adapter for ConstructorOption
type constructorOptionFunc func(*constructorConfig)

func (f constructorOptionFunc) applyConstructor(c *constructorConfig) { f(c) }

// WithID declares the constructor under id instead of its result type.
func WithID(id string) ConstructorOption {
	return constructorOptionFunc(func(c *constructorConfig) {
		c.id = id
	})
}

// ParamNames names positional constructor parameters so the parameter table
// can override them. Use "" to leave a position unnamed.
//
// Example:
//
//	keel.Declare(c, NewMailer, keel.ParamNames("", "mail.host", "mail.port"))
func ParamNames(names ...string) ConstructorOption {
	return constructorOptionFunc(func(c *constructorConfig) {
		c.paramNames = append(c.paramNames, names...)
	})
}

// As also declares the constructor under the given interface types, so a
// parameter of an interface type can be autowired from it.
//
// Example:
//
//	keel.Declare(c, NewFileStore, keel.As(new(Store)))
func As(ifaces ...any) ConstructorOption {
	return constructorOptionFunc(func(c *constructorConfig) {
		for _, iface := range ifaces {
			t := reflect.TypeOf(iface)
			if t.Kind() == reflect.Ptr {
				t = t.Elem()
			}
			c.asTypes = append(c.asTypes, t)
		}
	})
}

// WithAliases adds aliases for the entry Provide registers.
func WithAliases(aliases ...string) ConstructorOption {
	return constructorOptionFunc(func(c *constructorConfig) {
		c.aliases = append(c.aliases, aliases...)
	})
}

// WithRegisterOptions passes register options to the entry Provide registers.
func WithRegisterOptions(opts ...RegisterOption) ConstructorOption {
	return constructorOptionFunc(func(c *constructorConfig) {
		c.registerOpts = append(c.registerOpts, opts...)
	})
}

// Declare adds a constructor to the autowiring table. The constructor is
// keyed by the identifier of its result type (see TypeID) and is only called
// when an entry is registered for autowiring or when a parameter of that
// type is autowired one level deep.
//
// Example:
//
//	func NewUserService(db *Database, logger *Logger) *UserService {
//	    return &UserService{db: db, logger: logger}
//	}
//	keel.Declare(c, NewUserService)
//	c.Register(keel.IDOf[*UserService](), nil)
func Declare(c Container, constructor any, opts ...ConstructorOption) error {
	_, _, err := declare(c, constructor, opts)

	return err
}

// Provide declares a constructor and registers its result type for
// autowiring. Types passed with As become aliases of the entry, so resolving
// the interface returns the same instance.
//
// Example:
//
//	keel.Provide(c, NewFileStore, keel.As(new(Store)), keel.WithAliases("store"))
//	store, err := keel.Resolve[Store](c, keel.IDOf[Store]())
func Provide(c Container, constructor any, opts ...ConstructorOption) error {
	config, id, err := declare(c, constructor, opts)
	if err != nil {
		return err
	}

	if err := c.Register(id, nil, config.registerOpts...); err != nil {
		return err
	}

	for _, t := range config.asTypes {
		if result := c.SetAlias(TypeID(t), id); !result.OK() {
			return fmt.Errorf("alias %s: %w", TypeID(t), result.Err())
		}
	}

	for _, alias := range config.aliases {
		if result := c.SetAlias(alias, id); !result.OK() {
			return fmt.Errorf("alias %s: %w", alias, result.Err())
		}
	}

	return nil
}

// declare analyzes constructor and records it under its identifiers.
func declare(c Container, constructor any, opts []ConstructorOption) (*constructorConfig, string, error) {
	impl, ok := c.(*containerImpl)
	if !ok {
		return nil, "", fmt.Errorf("declare requires a container created by keel.New, got %T", c)
	}

	config := &constructorConfig{}
	for _, opt := range opts {
		opt.applyConstructor(config)
	}

	info, err := analyzeConstructor(constructor, config.paramNames)
	if err != nil {
		return nil, "", fmt.Errorf("invalid constructor: %w", err)
	}

	id := config.id
	if id == "" {
		id = TypeID(info.result)
	}

	if err := impl.constructors.register(id, info); err != nil {
		return nil, "", err
	}

	for _, t := range config.asTypes {
		if !info.result.AssignableTo(t) {
			return nil, "", fmt.Errorf("%s does not implement %s", info.result, t)
		}

		if err := impl.constructors.register(TypeID(t), info); err != nil {
			return nil, "", err
		}
	}

	return config, id, nil
}
