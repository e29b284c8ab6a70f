package keel

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// maxAutowireDepth bounds implicit construction: the entry being autowired
// may build unregistered dependencies once, but their own dependencies must
// already be registered.
const maxAutowireDepth = 1

var durationType = reflect.TypeOf(time.Duration(0))

// autowireFactory returns the factory stored for an autowired entry.
func (c *containerImpl) autowireFactory(id string) Factory {
	return func(Container) (any, error) {
		info, ok := c.constructors.get(id)
		if !ok {
			return nil, ErrEntryNotFound(id)
		}

		return c.build(info, 0)
	}
}

// build resolves every constructor parameter and calls the constructor.
func (c *containerImpl) build(info *constructorInfo, depth int) (any, error) {
	owner := TypeID(info.result)
	args := make([]reflect.Value, len(info.params))

	for i, param := range info.params {
		var (
			arg reflect.Value
			err error
		)

		if param.isIn {
			arg, err = c.buildIn(owner, param, depth)
		} else {
			arg, err = c.resolveParam(owner, param, depth)
		}

		if err != nil {
			return nil, err
		}

		args[i] = arg
	}

	c.logger.Debug("autowiring", zap.String("type", owner), zap.Int("depth", depth))

	results := info.fn.Call(args)

	if info.hasError {
		if errResult := results[1]; !errResult.IsNil() {
			return nil, NewEntryError(owner, "construct", errResult.Interface().(error))
		}
	}

	return results[0].Interface(), nil
}

// buildIn creates and populates an In struct with resolved dependencies
func (c *containerImpl) buildIn(owner string, param paramInfo, depth int) (reflect.Value, error) {
	structType := param.typ
	isPtr := structType.Kind() == reflect.Ptr
	if isPtr {
		structType = structType.Elem()
	}

	structValue := reflect.New(structType).Elem()

	for _, field := range param.inFields {
		resolved, err := c.resolveParam(owner, field, depth)
		if err != nil {
			return reflect.Value{}, err
		}

		structValue.Field(field.index).Set(resolved)
	}

	if isPtr {
		return structValue.Addr(), nil
	}

	return structValue, nil
}

// resolveParam picks a value for one parameter. In order: a named override
// from the parameter table, a default for built-in kinds, an override of a
// compatible type, a registered entry for the parameter's type, a one-level
// implicit construction, and finally the zero value for optional parameters.
func (c *containerImpl) resolveParam(owner string, p paramInfo, depth int) (reflect.Value, error) {
	var override reflect.Value

	if p.name != "" {
		if raw, ok := c.parameter(p.name); ok {
			v, err := c.overrideValue(owner, p, raw, depth)
			if err != nil {
				return reflect.Value{}, err
			}
			override = v
		}
	}

	if isBuiltin(p.typ) {
		if override.IsValid() && override.Kind() == p.typ.Kind() {
			return override.Convert(p.typ), nil
		}

		if p.hasDefault {
			return parseDefault(owner, p)
		}

		if p.optional {
			return reflect.Zero(p.typ), nil
		}

		return reflect.Value{}, ErrMissingRequiredParameter(owner, p.label())
	}

	if override.IsValid() {
		if v, ok := assignTo(override, p.typ); ok {
			return v, nil
		}
	}

	id := TypeID(p.typ)

	if c.Has(id) {
		value, err := c.Get(id)
		if err != nil {
			return reflect.Value{}, err
		}

		v, ok := assignTo(reflect.ValueOf(value), p.typ)
		if !ok {
			return reflect.Value{}, ErrTypeMismatch(id, value)
		}

		return v, nil
	}

	if depth < maxAutowireDepth {
		if info, ok := c.constructors.get(id); ok {
			value, err := c.build(info, depth+1)
			if err != nil {
				return reflect.Value{}, err
			}

			v, ok := assignTo(reflect.ValueOf(value), p.typ)
			if !ok {
				return reflect.Value{}, ErrTypeMismatch(id, value)
			}

			return v, nil
		}
	}

	if p.optional {
		return reflect.Zero(p.typ), nil
	}

	return reflect.Value{}, ErrMissingRequiredParameter(owner, p.label())
}

// overrideValue turns a raw parameter-table value into the candidate value.
// Funcs are invoked unless the parameter itself has a func type.
func (c *containerImpl) overrideValue(owner string, p paramInfo, raw any, depth int) (reflect.Value, error) {
	fn := reflect.ValueOf(raw)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return fn, nil
	}

	t := fn.Type()
	if t.AssignableTo(p.typ) || t.IsVariadic() {
		return fn, nil
	}

	var args []reflect.Value

	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) == containerType {
			args = []reflect.Value{reflect.ValueOf(Container(c))}

			break
		}

		arg, err := c.resolveParam(owner, paramInfo{typ: t.In(0), index: p.index}, depth)
		if err != nil {
			return reflect.Value{}, err
		}
		args = []reflect.Value{arg}
	default:
		return fn, nil
	}

	switch t.NumOut() {
	case 1:
		return concrete(fn.Call(args)[0]), nil
	case 2:
		if t.Out(1) != errorType {
			return fn, nil
		}

		results := fn.Call(args)
		if !results[1].IsNil() {
			return reflect.Value{}, NewEntryError(owner, "parameter "+p.label(), results[1].Interface().(error))
		}

		return concrete(results[0]), nil
	default:
		return fn, nil
	}
}

// parseDefault converts a `default` tag into the parameter's kind.
func parseDefault(owner string, p paramInfo) (reflect.Value, error) {
	var (
		value any
		err   error
	)

	switch p.typ.Kind() {
	case reflect.Bool:
		value, err = cast.ToBoolE(p.defaultValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if p.typ == durationType {
			value, err = cast.ToDurationE(p.defaultValue)
		} else {
			value, err = cast.ToInt64E(p.defaultValue)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value, err = cast.ToUint64E(p.defaultValue)
	case reflect.Float32, reflect.Float64:
		value, err = cast.ToFloat64E(p.defaultValue)
	case reflect.Complex64, reflect.Complex128:
		value, err = strconv.ParseComplex(p.defaultValue, 128)
	default:
		value, err = cast.ToStringE(p.defaultValue)
	}

	if err == nil && overflows(p.typ, value) {
		err = fmt.Errorf("%q overflows %s", p.defaultValue, p.typ)
	}

	if err != nil {
		return reflect.Value{}, NewEntryError(owner, "default for "+p.label(), err)
	}

	return reflect.ValueOf(value).Convert(p.typ), nil
}

// overflows reports whether a parsed default does not fit in t.
func overflows(t reflect.Type, value any) bool {
	zero := reflect.Zero(t)

	switch v := value.(type) {
	case int64:
		return zero.OverflowInt(v)
	case uint64:
		return zero.OverflowUint(v)
	case float64:
		return zero.OverflowFloat(v)
	case complex128:
		return zero.OverflowComplex(v)
	default:
		return false
	}
}

// assignTo adapts v to t, dereferencing or taking the address of a value
// when only the pointer-ness differs. Invalid values become nil for
// nillable types.
func assignTo(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	v = concrete(v)

	if !v.IsValid() {
		if nillable(t) {
			return reflect.Zero(t), true
		}

		return reflect.Value{}, false
	}

	if v.Type().AssignableTo(t) {
		return v, true
	}

	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(t) {
		return v.Elem(), true
	}

	if t.Kind() == reflect.Ptr && v.Type().AssignableTo(t.Elem()) {
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)

		return ptr, true
	}

	return reflect.Value{}, false
}

// concrete unwraps interface-kinded values to their dynamic value.
func concrete(v reflect.Value) reflect.Value {
	if v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}

		return v.Elem()
	}

	return v
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
