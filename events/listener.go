package events

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"unsafe"
)

// Handler is the canonical listener shape. payload is the running value of
// the dispatch; the returned value becomes the payload of the next listener.
type Handler func(ctx context.Context, payload any, args ...any) (any, error)

// Listener is implemented by objects that handle events. Its identity is
// the object's address, so two instances of one type are distinct
// listeners. Implementations need pointer receivers.
type Listener interface {
	Handle(ctx context.Context, payload any, args ...any) (any, error)
}

// named gives a listener an explicit identity.
type named struct {
	id string
	fn any
}

// Named wraps fn so it is identified by id instead of a derived identity.
//
//	bus.Add("user:created", events.Named("audit", auditUser))
//	bus.Remove("user:created", events.ForID("audit"))
func Named(id string, fn any) any {
	return named{id: id, fn: fn}
}

// method binds a method of a receiver by name.
type method struct {
	recv any
	name string
}

// Method refers to recv's method called name. The identity combines the
// receiver's address with the method name, so the same method on another
// receiver is a different listener. recv must be a pointer.
func Method(recv any, name string) any {
	return method{recv: recv, name: name}
}

var (
	// methodExpr matches runtime names of method expressions, e.g.
	// "pkg.(*T).M".
	methodExpr = regexp.MustCompile(`^(.*)\.\(\*?([^()]+)\)\.([^.]+)$`)

	// boundMethod matches method values with a pointer receiver, e.g.
	// "pkg.(*T).M-fm".
	boundMethod = regexp.MustCompile(`\.\(\*[^()]+\)\.([^.]+)-fm$`)

	// closureName matches function literals, e.g. "pkg.Outer.func1.2".
	closureName = regexp.MustCompile(`\.func\d+(\.\d+)*$`)
)

// ListenerID derives the identity of a listener:
//
//   - Named listeners use their name.
//   - Method values (obj.M), Method and Listener values use the receiver's
//     address and the method name, so obj.M and Method(obj, "M") match.
//   - Function literals use their runtime name and the address of the
//     closure, so every closure instance is a distinct listener.
//   - Top-level functions use their qualified runtime name, and method
//     expressions render as "pkg.Type::Method".
//
// Receivers must be pointers (or maps, channels, funcs); a value receiver is
// a copy with no identity and is rejected. Zero-size receivers share one
// address.
func ListenerID(l any) (string, error) {
	switch v := l.(type) {
	case nil:
		return "", invalidListener(l)
	case named:
		if v.id == "" {
			return "", invalidListener(l)
		}
		return v.id, nil
	case method:
		token, ok := objectToken(v.recv)
		if !ok {
			return "", invalidListener(l)
		}
		return token + "::" + v.name, nil
	case Listener:
		token, ok := objectToken(v)
		if !ok {
			return "", invalidListener(l)
		}
		return token + "::Handle", nil
	}

	fn := reflect.ValueOf(l)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return "", invalidListener(l)
	}

	rf := runtime.FuncForPC(fn.Pointer())
	if rf == nil {
		return address(uintptr(closure(l))), nil
	}

	name := rf.Name()

	switch {
	case strings.HasSuffix(name, "-fm"):
		m := boundMethod.FindStringSubmatch(name)
		if m == nil {
			return "", invalidListener(l)
		}
		return address(receiver(l)) + "::" + m[1], nil
	case closureName.MatchString(name):
		return name + "@" + address(uintptr(closure(l))), nil
	}

	if m := methodExpr.FindStringSubmatch(name); m != nil {
		return m[1] + "." + m[2] + "::" + m[3], nil
	}

	return name, nil
}

// objectToken identifies a receiver by address. It fails for receivers that
// are copied on every call.
func objectToken(recv any) (string, bool) {
	v := reflect.ValueOf(recv)

	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return "", false
		}
		return address(v.Pointer()), true
	case reflect.Func:
		if v.IsNil() {
			return "", false
		}
		return address(uintptr(closure(recv))), true
	default:
		return "", false
	}
}

func address(p uintptr) string {
	return fmt.Sprintf("%#x", p)
}

// closure returns the closure record a func value points at. Func values
// are stored directly in the interface data word.
func closure(fn any) unsafe.Pointer {
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&fn))[1]
}

// receiver returns the receiver captured by a pointer-receiver method value:
// the first word after the code pointer in its closure record.
func receiver(fn any) uintptr {
	return *(*uintptr)(unsafe.Add(closure(fn), unsafe.Sizeof(uintptr(0))))
}

// toHandler converts any accepted listener shape into a Handler.
func toHandler(l any) (Handler, error) {
	switch v := l.(type) {
	case Handler:
		return v, nil
	case func(context.Context, any, ...any) (any, error):
		return v, nil
	case func(context.Context, any) (any, error):
		return func(ctx context.Context, payload any, _ ...any) (any, error) {
			return v(ctx, payload)
		}, nil
	case func(any) (any, error):
		return func(_ context.Context, payload any, _ ...any) (any, error) {
			return v(payload)
		}, nil
	case func(any) any:
		return func(_ context.Context, payload any, _ ...any) (any, error) {
			return v(payload), nil
		}, nil
	case named:
		return toHandler(v.fn)
	case method:
		if v.recv == nil {
			return nil, invalidListener(l)
		}

		m := reflect.ValueOf(v.recv).MethodByName(v.name)
		if !m.IsValid() {
			return nil, invalidListener(l)
		}

		return toHandler(m.Interface())
	case Listener:
		return v.Handle, nil
	default:
		return nil, invalidListener(l)
	}
}
