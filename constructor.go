package keel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// In is a marker type that should be embedded in structs to indicate
// they are parameter objects. Each exported field is autowired like a
// constructor parameter, with its name taken from the `param` tag or the
// field name.
//
// Example:
//
//	type MailerParams struct {
//	    keel.In
//
//	    Logger  *Logger
//	    Host    string        `param:"mail.host"`
//	    Port    int           `default:"25"`
//	    Timeout time.Duration `default:"5s"`
//	    Tracer  Tracer        `optional:"true"`
//	}
type In struct{}

var (
	inType    = reflect.TypeOf(In{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// constructorInfo holds analyzed constructor metadata
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	result   reflect.Type
	params   []paramInfo
	hasError bool
}

// paramInfo describes a constructor parameter
type paramInfo struct {
	typ          reflect.Type
	name         string // parameter-table key, empty for unnamed positional params
	optional     bool   // From `optional:"true"` tag
	defaultValue string // From `default:"..."` tag
	hasDefault   bool
	index        int         // Position in function parameters or struct field index
	isIn         bool        // Whether this is an In struct (expanded into multiple deps)
	inFields     []paramInfo // Expanded fields if isIn is true
}

// label names the parameter in error messages.
func (p paramInfo) label() string {
	if p.name != "" {
		return p.name
	}

	return fmt.Sprintf("#%d (%s)", p.index, p.typ)
}

// analyzeConstructor inspects a constructor function and extracts its
// parameters and single result for autowiring. names label positional
// parameters in order.
func analyzeConstructor(constructor any, names []string) (*constructorInfo, error) {
	if constructor == nil {
		return nil, ErrInvalidConstructor
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, errors.New("constructor must be a function")
	}

	if fnType.IsVariadic() {
		return nil, errors.New("constructor must not be variadic")
	}

	if len(names) > fnType.NumIn() {
		return nil, fmt.Errorf("%d parameter names given for %d parameters", len(names), fnType.NumIn())
	}

	info := &constructorInfo{
		fn:     fnValue,
		fnType: fnType,
	}

	for i := 0; i < fnType.NumIn(); i++ {
		param, err := analyzeParam(fnType.In(i), i)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}

		if i < len(names) && !param.isIn {
			param.name = names[i]
		}

		info.params = append(info.params, param)
	}

	switch fnType.NumOut() {
	case 1:
		if fnType.Out(0) == errorType {
			return nil, errors.New("constructor must return a non-error value")
		}
	case 2:
		if fnType.Out(1) != errorType {
			return nil, errors.New("error must be the last return value")
		}
		info.hasError = true
	default:
		return nil, errors.New("constructor must return (T) or (T, error)")
	}

	info.result = fnType.Out(0)

	return info, nil
}

// analyzeParam analyzes a single parameter type
func analyzeParam(t reflect.Type, index int) (paramInfo, error) {
	param := paramInfo{
		typ:   t,
		index: index,
	}

	if isInStruct(t) {
		param.isIn = true
		fields, err := expandInStruct(t)
		if err != nil {
			return param, err
		}
		param.inFields = fields
	}

	return param, nil
}

// isInStruct checks if a type embeds keel.In
func isInStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
		if field.Anonymous && isInStruct(field.Type) {
			return true
		}
	}
	return false
}

// expandInStruct expands an In struct into its field dependencies
func expandInStruct(t reflect.Type) ([]paramInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var params []paramInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous && (field.Type == inType || isInStruct(field.Type)) {
			continue
		}

		if !field.IsExported() {
			continue
		}

		param := paramInfo{
			typ:   field.Type,
			index: i,
			name:  lowerFirst(field.Name),
		}

		if tag := field.Tag.Get("param"); tag != "" {
			param.name = tag
		}

		if tag := field.Tag.Get("optional"); strings.ToLower(tag) == "true" {
			param.optional = true
		}

		if tag, ok := field.Tag.Lookup("default"); ok {
			if !isBuiltin(field.Type) {
				return nil, fmt.Errorf("field %s: default tag requires a built-in type, got %s", field.Name, field.Type)
			}
			param.defaultValue = tag
			param.hasDefault = true
		}

		params = append(params, param)
	}

	return params, nil
}

// dependencyIDs returns the identifiers of every non built-in parameter.
func (c *constructorInfo) dependencyIDs() []string {
	var ids []string

	var collect func(params []paramInfo)
	collect = func(params []paramInfo) {
		for _, p := range params {
			if p.isIn {
				collect(p.inFields)
				continue
			}

			if !isBuiltin(p.typ) {
				ids = append(ids, TypeID(p.typ))
			}
		}
	}
	collect(c.params)

	return ids
}

// isBuiltin reports whether t is a boolean, numeric, complex or string kind.
func isBuiltin(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToLower(r)) + s[size:]
}
