package keel

import (
	"fmt"
	"reflect"
)

// InjectOption names one dependency of a RegisterWith factory.
type InjectOption struct {
	ID       string
	Type     reflect.Type
	Optional bool
}

// Inject creates an injection option for a required dependency.
// The identifier defaults to IDOf[T]().
//
// Usage:
//
//	keel.RegisterWith[*UserService](c, "users",
//	    keel.Inject[*sql.DB]("database"),
//	    func(db *sql.DB) (*UserService, error) { ... },
//	)
func Inject[T any](id ...string) InjectOption {
	return newInjectOption[T](false, id)
}

// Optional creates an injection option that yields the zero value when the
// dependency is not registered.
func Optional[T any](id ...string) InjectOption {
	return newInjectOption[T](true, id)
}

func newInjectOption[T any](optional bool, id []string) InjectOption {
	opt := InjectOption{
		ID:       IDOf[T](),
		Type:     reflect.TypeOf((*T)(nil)).Elem(),
		Optional: optional,
	}
	if len(id) > 0 && id[0] != "" {
		opt.ID = id[0]
	}

	return opt
}

// InjectIDs extracts the identifiers from inject options.
func InjectIDs(opts []InjectOption) []string {
	ids := make([]string, len(opts))
	for i, opt := range opts {
		ids[i] = opt.ID
	}

	return ids
}

// RegisterWith registers a factory with typed dependency injection.
// Accepts InjectOption and RegisterOption arguments followed by a factory
// function whose parameters line up with the inject options. The injected
// identifiers are recorded as DependsOn for Boot ordering.
func RegisterWith[T any](c Container, id string, args ...any) error {
	var (
		injectOpts   []InjectOption
		registerOpts []RegisterOption
		factoryFn    any
	)

	for _, arg := range args {
		switch v := arg.(type) {
		case InjectOption:
			injectOpts = append(injectOpts, v)
		case RegisterOption:
			registerOpts = append(registerOpts, v)
		default:
			if factoryFn != nil {
				return fmt.Errorf("register %s: multiple factory functions provided", id)
			}

			factoryFn = arg
		}
	}

	if factoryFn == nil {
		return fmt.Errorf("register %s: no factory function provided", id)
	}

	if err := checkFactory[T](factoryFn, injectOpts); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}

	factory := Factory(func(container Container) (any, error) {
		deps := make([]any, len(injectOpts))

		for i, opt := range injectOpts {
			if opt.Optional && !container.Has(opt.ID) {
				continue
			}

			dep, err := container.Get(opt.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dependency %s: %w", opt.ID, err)
			}

			deps[i] = dep
		}

		return callFactory(factoryFn, deps)
	})

	if len(injectOpts) > 0 {
		registerOpts = append(registerOpts, DependsOn(InjectIDs(injectOpts)...))
	}

	return c.Register(id, factory, registerOpts...)
}

// checkFactory verifies the factory's shape against the inject options.
func checkFactory[T any](factoryFn any, opts []InjectOption) error {
	fnType := reflect.TypeOf(factoryFn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("factory must be a function, got %T", factoryFn)
	}

	if fnType.NumIn() != len(opts) {
		return fmt.Errorf("factory expects %d parameters, got %d dependencies", fnType.NumIn(), len(opts))
	}

	for i, opt := range opts {
		if !opt.Type.AssignableTo(fnType.In(i)) {
			return fmt.Errorf("parameter %d is %s, dependency %s is %s", i, fnType.In(i), opt.ID, opt.Type)
		}
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	switch fnType.NumOut() {
	case 1:
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			return fmt.Errorf("factory second result must be error, got %s", fnType.Out(1))
		}
	default:
		return fmt.Errorf("factory must return (T) or (T, error), got %d return values", fnType.NumOut())
	}

	if !fnType.Out(0).AssignableTo(want) {
		return fmt.Errorf("factory returns %s, want %s", fnType.Out(0), want)
	}

	return nil
}

// callFactory invokes factoryFn with resolved dependencies.
func callFactory(factoryFn any, deps []any) (any, error) {
	fnValue := reflect.ValueOf(factoryFn)
	fnType := fnValue.Type()

	args := make([]reflect.Value, len(deps))
	for i, dep := range deps {
		in := fnType.In(i)
		if dep == nil {
			args[i] = reflect.Zero(in)
			continue
		}

		v := reflect.ValueOf(dep)
		if !v.Type().AssignableTo(in) {
			return nil, fmt.Errorf("dependency %d: %s is not assignable to %s", i, v.Type(), in)
		}

		args[i] = v
	}

	results := fnValue.Call(args)

	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}

	return results[0].Interface(), nil
}
