package keel

// ServiceKey provides type-safe entry identification.
// Use NewServiceKey to create typed keys for your entries.
type ServiceKey[T any] struct {
	id string
}

// NewServiceKey creates a new typed key. An empty id falls back to IDOf[T]().
//
// Example:
//
//	var DatabaseKey = keel.NewServiceKey[*Database]("database")
func NewServiceKey[T any](id string) ServiceKey[T] {
	if id == "" {
		id = IDOf[T]()
	}

	return ServiceKey[T]{id: id}
}

// ID returns the identifier behind the key.
func (k ServiceKey[T]) ID() string {
	return k.id
}

// RegisterWithKey registers a typed factory under a service key.
//
// Example:
//
//	keel.RegisterWithKey(c, DatabaseKey, func(c keel.Container) (*Database, error) {
//	    return &Database{}, nil
//	})
func RegisterWithKey[T any](c Container, key ServiceKey[T], factory func(Container) (T, error), opts ...RegisterOption) error {
	return RegisterFactory(c, key.id, factory, opts...)
}

// ResolveWithKey resolves an entry using a typed service key.
func ResolveWithKey[T any](c Container, key ServiceKey[T]) (T, error) {
	return Resolve[T](c, key.id)
}

// MustWithKey resolves an entry using a typed service key and panics on error.
func MustWithKey[T any](c Container, key ServiceKey[T]) T {
	result, err := ResolveWithKey(c, key)
	if err != nil {
		panic(err)
	}
	return result
}

// HasKey checks if an entry is registered under a typed service key.
func HasKey[T any](c Container, key ServiceKey[T]) bool {
	return c.Has(key.id)
}

// InspectKey returns diagnostic information about the entry behind key.
func InspectKey[T any](c Container, key ServiceKey[T]) EntryInfo {
	return c.Inspect(key.id)
}
