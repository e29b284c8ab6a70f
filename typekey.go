package keel

import "reflect"

var containerType = reflect.TypeOf((*Container)(nil)).Elem()

// TypeID returns the identifier used for a type: the package-qualified type
// name with pointers stripped, so *Logger and Logger share "pkg/path.Logger".
// Unnamed types fall back to their reflect string form.
func TypeID(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Name() == "" {
		return t.String()
	}

	if t.PkgPath() == "" {
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

// IDOf returns TypeID for T. It works for interface types too:
//
//	keel.IDOf[Logger]()      // "example.com/app.Logger"
//	keel.IDOf[*Database]()   // "example.com/app.Database"
func IDOf[T any]() string {
	return TypeID(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeIDOf returns the identifier of v's dynamic type.
func TypeIDOf(v any) string {
	return TypeID(reflect.TypeOf(v))
}
