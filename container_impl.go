package keel

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// containerImpl implements Container.
type containerImpl struct {
	entries      map[string]*entry
	order        []string // registration order
	aliases      map[string]*aliasEntry
	lowerAliases map[string]string // lowercase alias -> alias, global aliases only
	params       map[string]any
	constructors *constructorTable
	middleware   *middlewareChain
	logger       *zap.Logger

	// resolving is the chain of identifiers whose factories are running.
	resolving []string

	lastID      string
	lastAliasOK bool
	mu          sync.RWMutex
}

// entry is one registry slot.
type entry struct {
	id           string
	value        any
	factory      Factory // nil once resolved or for plain values
	frozen       bool
	protected    bool
	autowired    bool
	resolving    bool
	dependencies []string
}

// aliasEntry points an alias at a canonical identifier.
type aliasEntry struct {
	target    string
	protected bool
}

func newContainer(opts ...Option) *containerImpl {
	c := &containerImpl{
		entries:      make(map[string]*entry),
		aliases:      make(map[string]*aliasEntry),
		lowerAliases: make(map[string]string),
		params:       make(map[string]any),
		constructors: newConstructorTable(),
		middleware:   newMiddlewareChain(),
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// The container resolves to itself, like any other protected singleton.
	_ = c.Register(IDOf[Container](), Container(c), Protected(), AsValue())
	c.SetGlobalAlias("container", IDOf[Container]())
	c.lastID = ""

	return c
}

// Register stores value under id.
func (c *containerImpl) Register(id string, value any, opts ...RegisterOption) error {
	cfg := mergeOptions(opts)

	if id == "" {
		return fmt.Errorf("entry id cannot be empty")
	}

	var (
		factory   Factory
		deps      = cfg.dependsOn
		autowired bool
	)

	switch {
	case value == nil:
		info, ok := c.constructors.get(id)
		if !ok {
			return ErrEntryNotFound(id)
		}

		factory = c.autowireFactory(id)
		deps = append(deps, info.dependencyIDs()...)
		autowired = true
	case !cfg.asValue:
		factory = asFactory(value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[id]; ok {
		if existing.frozen {
			return ErrFrozenEntry(id)
		}

		if existing.protected {
			c.logger.Debug("register ignored: entry is protected", zap.String("entry", id))

			return nil
		}
	} else {
		c.order = append(c.order, id)
	}

	e := &entry{
		id:           id,
		factory:      factory,
		protected:    cfg.protected,
		autowired:    autowired,
		dependencies: deps,
	}
	if factory == nil {
		e.value = value
	}

	c.entries[id] = e
	c.lastID = id

	c.logger.Debug("entry registered",
		zap.String("entry", id),
		zap.Bool("factory", factory != nil),
		zap.Bool("autowired", autowired),
		zap.Bool("protected", cfg.protected),
	)

	return nil
}

// Get resolves an identifier, running its factory on first use.
func (c *containerImpl) Get(id string) (any, error) {
	ctx := context.Background()

	if err := c.middleware.beforeResolve(ctx, id); err != nil {
		return nil, err
	}

	value, err := c.resolve(id)

	if mwErr := c.middleware.afterResolve(ctx, id, value, err); mwErr != nil {
		return nil, mwErr
	}

	return value, err
}

// resolve performs the actual lookup without middleware.
func (c *containerImpl) resolve(id string) (any, error) {
	c.mu.Lock()

	key := c.canonical(id)
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()

		return nil, ErrEntryNotFound(id)
	}

	if e.factory == nil {
		value := e.value
		c.mu.Unlock()

		return value, nil
	}

	if e.resolving {
		cycle := c.cycleTo(key)
		c.mu.Unlock()

		return nil, ErrCircularDependency(cycle)
	}

	e.resolving = true
	c.resolving = append(c.resolving, key)
	factory := e.factory
	c.mu.Unlock()

	// Factories may call back into the container, so no lock is held here.
	value, err := factory(c)

	c.mu.Lock()
	defer c.mu.Unlock()

	e.resolving = false
	c.popResolving(key)

	if err != nil {
		return nil, NewEntryError(key, "resolve", err)
	}

	// A nested call may already have replaced or frozen this slot.
	if e.factory == nil {
		return e.value, nil
	}

	e.value = value
	e.factory = nil
	e.frozen = true

	c.logger.Debug("entry frozen", zap.String("entry", key), zap.String("type", fmt.Sprintf("%T", value)))

	return value, nil
}

// Has reports whether id resolves to an entry.
func (c *containerImpl) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[c.canonical(id)]

	return ok
}

// Remove drops an unprotected entry and every unprotected alias to it.
func (c *containerImpl) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.canonical(id)

	e, ok := c.entries[key]
	if !ok {
		return false
	}

	if e.protected {
		c.logger.Debug("remove ignored: entry is protected", zap.String("entry", key))

		return false
	}

	delete(c.entries, key)

	for i, name := range c.order {
		if name == key {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}

	for alias, a := range c.aliases {
		if a.target == key && !a.protected {
			c.dropAlias(alias)
		}
	}

	return true
}

// Protect marks an entry immutable.
func (c *containerImpl) Protect(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[c.canonical(id)]
	if !ok {
		return false
	}

	e.protected = true

	return true
}

// Entries returns registered identifiers in registration order.
func (c *containerImpl) Entries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)

	return out
}

// Use adds middleware to the container.
// Middleware is called in the order it is added.
func (c *containerImpl) Use(middleware Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware.add(middleware)
}

// Inspect returns diagnostic information about an entry.
func (c *containerImpl) Inspect(id string) EntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := c.canonical(id)

	e, ok := c.entries[key]
	if !ok {
		return EntryInfo{ID: id}
	}

	typeName := "unknown"
	if e.factory == nil && e.value != nil {
		typeName = reflect.TypeOf(e.value).String()
	}

	var aliases []string
	for alias, a := range c.aliases {
		if a.target == key {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)

	deps := make([]string, len(e.dependencies))
	copy(deps, e.dependencies)

	return EntryInfo{
		ID:           key,
		Type:         typeName,
		Aliases:      aliases,
		Frozen:       e.frozen,
		Protected:    e.protected,
		Pending:      e.factory != nil,
		Autowired:    e.autowired,
		Dependencies: deps,
	}
}

// Boot resolves every pending factory in dependency order.
func (c *containerImpl) Boot(ctx context.Context) error {
	c.mu.RLock()
	graph := NewDependencyGraph()
	for _, id := range c.order {
		e := c.entries[id]

		deps := make([]string, 0, len(e.dependencies))
		for _, dep := range e.dependencies {
			deps = append(deps, c.canonical(dep))
		}

		graph.AddNode(id, deps)
	}
	c.mu.RUnlock()

	order, err := graph.TopologicalSort()
	if err != nil {
		return err
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !c.pending(id) {
			continue
		}

		if _, err := c.Get(id); err != nil {
			return NewEntryError(id, "boot", err)
		}
	}

	c.logger.Debug("container booted", zap.Int("entries", len(order)))

	return nil
}

// pending reports whether id still holds an unresolved factory.
func (c *containerImpl) pending(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]

	return ok && e.factory != nil
}

// canonical maps id to the identifier of its entry (must hold mu).
// Lookup order: exact entry, exact alias, lowercase global alias.
func (c *containerImpl) canonical(id string) string {
	if _, ok := c.entries[id]; ok {
		return id
	}

	if a, ok := c.aliases[id]; ok {
		return a.target
	}

	if alias, ok := c.lowerAliases[strings.ToLower(id)]; ok {
		if a, ok := c.aliases[alias]; ok {
			return a.target
		}
	}

	return id
}

// cycleTo returns the resolution chain from key's first occurrence back to
// key (must hold mu).
func (c *containerImpl) cycleTo(key string) []string {
	for i, id := range c.resolving {
		if id == key {
			cycle := make([]string, 0, len(c.resolving)-i+1)
			cycle = append(cycle, c.resolving[i:]...)

			return append(cycle, key)
		}
	}

	return []string{key, key}
}

// popResolving removes the last occurrence of key (must hold mu).
func (c *containerImpl) popResolving(key string) {
	for i := len(c.resolving) - 1; i >= 0; i-- {
		if c.resolving[i] == key {
			c.resolving = append(c.resolving[:i], c.resolving[i+1:]...)

			return
		}
	}
}

// asFactory converts the supported factory shapes into a Factory, or
// returns nil when value should be stored as-is.
func asFactory(value any) Factory {
	switch f := value.(type) {
	case Factory:
		return f
	case func(Container) (any, error):
		return f
	}

	fn := reflect.ValueOf(value)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil
	}

	t := fn.Type()
	if t.IsVariadic() || t.NumIn() > 1 {
		return nil
	}

	if t.NumIn() == 1 && t.In(0) != containerType {
		return nil
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errorType {
			return nil
		}
	case 2:
		if t.Out(1) != errorType {
			return nil
		}
	default:
		return nil
	}

	return func(c Container) (any, error) {
		var args []reflect.Value
		if t.NumIn() == 1 {
			args = []reflect.Value{reflect.ValueOf(&c).Elem()}
		}

		results := fn.Call(args)
		if len(results) == 2 && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}

		return results[0].Interface(), nil
	}
}
