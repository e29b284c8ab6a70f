package keel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
)

// Logger is a stand-in application logger.
type Logger struct {
	prefix string
}

// Database depends on Logger.
type Database struct {
	Logger *Logger
	DSN    string
}

type testService struct {
	value string
}

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)

	assert.Equal(t, []string{IDOf[Container]()}, c.Entries())

	self, err := c.Get("container")
	require.NoError(t, err)
	assert.Same(t, c, self)
	assert.True(t, c.Inspect(IDOf[Container]()).Protected)
}

func TestRegister_EmptyID(t *testing.T) {
	c := New()

	err := c.Register("", "value")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestRegister_Value(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("answer", 42))

	v, err := c.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Plain values are not frozen and may be replaced.
	assert.False(t, c.Inspect("answer").Frozen)
	require.NoError(t, c.Register("answer", 43))

	v, err = c.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, 43, v)
}

func TestRegister_FactoryShapes(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("plain", func() string { return "plain" }))
	require.NoError(t, c.Register("with-error", func() (int, error) { return 7, nil }))
	require.NoError(t, c.Register("with-container", func(c Container) *testService {
		return &testService{value: "from container"}
	}))
	require.NoError(t, c.Register("factory", Factory(func(c Container) (any, error) {
		return "factory", nil
	})))

	assert.Equal(t, "plain", Must[string](c, "plain"))
	assert.Equal(t, 7, Must[int](c, "with-error"))
	assert.Equal(t, "from container", Must[*testService](c, "with-container").value)
	assert.Equal(t, "factory", Must[string](c, "factory"))
}

func TestRegister_FuncWithUnsupportedShapeIsValue(t *testing.T) {
	c := New()

	fn := func(a, b int) int { return a + b }
	require.NoError(t, c.Register("adder", fn))

	v, err := c.Get("adder")
	require.NoError(t, err)

	adder, ok := v.(func(int, int) int)
	require.True(t, ok)
	assert.Equal(t, 3, adder(1, 2))
}

func TestRegister_AsValueKeepsFactoryFunc(t *testing.T) {
	c := New()

	calls := 0
	fn := func() int {
		calls++
		return calls
	}
	require.NoError(t, c.Register("counter", fn, AsValue()))

	v, err := c.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	_, ok := v.(func() int)
	assert.True(t, ok)
}

func TestGet_NotFound(t *testing.T) {
	c := New()

	_, err := c.Get("missing")

	require.Error(t, err)
	assert.True(t, IsEntryNotFound(err))

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "missing", e.GetContext()["entry"])
}

func TestGet_FreezesFactory(t *testing.T) {
	c := New()
	calls := 0

	require.NoError(t, c.Register("svc", func() *testService {
		calls++
		return &testService{value: "once"}
	}))

	assert.True(t, c.Inspect("svc").Pending)

	first, err := c.Get("svc")
	require.NoError(t, err)

	second, err := c.Get("svc")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)

	info := c.Inspect("svc")
	assert.True(t, info.Frozen)
	assert.False(t, info.Pending)
	assert.Equal(t, "*keel.testService", info.Type)

	err = c.Register("svc", "replacement")
	require.Error(t, err)
	assert.True(t, IsFrozenEntry(err))
}

func TestGet_FactoryError(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	require.NoError(t, c.Register("broken", func() (any, error) {
		return nil, boom
	}))

	_, err := c.Get("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "resolve", e.GetContext()["operation"])
	assert.ErrorIs(t, e.Cause(), boom)

	// A failed factory stays pending and can be retried.
	assert.True(t, c.Inspect("broken").Pending)
	assert.False(t, c.Inspect("broken").Frozen)
}

func TestGet_CircularDependency(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("a", func(c Container) (any, error) {
		return c.Get("b")
	}))
	require.NoError(t, c.Register("b", func(c Container) (any, error) {
		return c.Get("a")
	}))

	_, err := c.Get("a")
	require.Error(t, err)
	assert.True(t, IsCircularDependency(err))
	assert.Contains(t, contextValues(err, "cycle"), []string{"a", "b", "a"})

	// The stack unwinds so later resolutions are unaffected.
	require.NoError(t, c.Register("c", "ok"))
	_, err = c.Get("c")
	assert.NoError(t, err)
}

func TestGet_NestedFactories(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), func() *Logger {
		return &Logger{prefix: "app"}
	}))
	require.NoError(t, c.Register(IDOf[*Database](), func(c Container) (*Database, error) {
		logger, err := ResolveType[*Logger](c)
		if err != nil {
			return nil, err
		}
		return &Database{Logger: logger, DSN: "memory"}, nil
	}))

	db, err := ResolveType[*Database](c)
	require.NoError(t, err)
	assert.Equal(t, "app", db.Logger.prefix)
	assert.True(t, c.Inspect(IDOf[*Logger]()).Frozen)
}

func TestHas(t *testing.T) {
	c := New()

	assert.False(t, c.Has("svc"))

	calls := 0
	require.NoError(t, c.Register("svc", func() int {
		calls++
		return calls
	}))

	assert.True(t, c.Has("svc"))
	assert.Equal(t, 0, calls)
	assert.True(t, c.Inspect("svc").Pending)
}

func TestRemove(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("svc", "value"))
	require.True(t, c.SetAlias("service", "svc").OK())

	assert.True(t, c.Remove("service"))
	assert.False(t, c.Has("svc"))
	assert.False(t, c.Has("service"))
	assert.NotContains(t, c.Entries(), "svc")

	assert.False(t, c.Remove("svc"))
}

func TestRemove_Frozen(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("svc", func() int { return 1 }))
	_, err := c.Get("svc")
	require.NoError(t, err)

	assert.True(t, c.Remove("svc"))
	require.NoError(t, c.Register("svc", func() int { return 2 }))
	assert.Equal(t, 2, Must[int](c, "svc"))
}

func TestProtected_Immutable(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("svc", "original", Protected()))

	assert.NoError(t, c.Register("svc", "replacement"))
	assert.False(t, c.Remove("svc"))

	v, err := c.Get("svc")
	require.NoError(t, err)
	assert.Equal(t, "original", v)
}

func TestProtect(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("svc", "original"))
	assert.True(t, c.Protect("svc"))
	assert.False(t, c.Protect("missing"))

	assert.False(t, c.Remove("svc"))
	assert.True(t, c.Inspect("svc").Protected)
}

func TestProtectedLogger_SameInstance(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), func() *Logger {
		return &Logger{prefix: "main"}
	}, Protected()))

	first, err := ResolveType[*Logger](c)
	require.NoError(t, err)

	second, err := ResolveType[*Logger](c)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestEntries_RegistrationOrder(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("b", 1))
	require.NoError(t, c.Register("a", 2))
	require.NoError(t, c.Register("b", 3))

	assert.Equal(t, []string{IDOf[Container](), "b", "a"}, c.Entries())
}

func TestInspect(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("svc", func() int { return 1 }, DependsOn("dep")))
	c.SetAlias("z-alias", "svc")
	c.SetAlias("a-alias", "svc")

	info := c.Inspect("a-alias")
	assert.Equal(t, "svc", info.ID)
	assert.Equal(t, "unknown", info.Type)
	assert.Equal(t, []string{"a-alias", "z-alias"}, info.Aliases)
	assert.Equal(t, []string{"dep"}, info.Dependencies)
	assert.True(t, info.Pending)

	missing := c.Inspect("missing")
	assert.Equal(t, "missing", missing.ID)
	assert.Empty(t, missing.Type)
}

func TestBoot_ResolvesInDependencyOrder(t *testing.T) {
	c := New()
	var order []string

	require.NoError(t, c.Register("api", func() string {
		order = append(order, "api")
		return "api"
	}, DependsOn("db-alias")))
	require.NoError(t, c.Register("db", func() string {
		order = append(order, "db")
		return "db"
	}))
	c.SetAlias("db-alias", "db")

	require.NoError(t, c.Boot(context.Background()))

	assert.Equal(t, []string{"db", "api"}, order)
	assert.Empty(t, FindPending(c))
}

func TestBoot_Cycle(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("a", func() int { return 1 }, DependsOn("b")))
	require.NoError(t, c.Register("b", func() int { return 2 }, DependsOn("a")))

	err := c.Boot(context.Background())
	require.Error(t, err)
	assert.True(t, IsCircularDependency(err))
}

func TestBoot_FactoryFailure(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	require.NoError(t, c.Register("bad", func() (int, error) { return 0, boom }))

	err := c.Boot(context.Background())
	require.Error(t, err)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "boot", e.GetContext()["operation"])
}

func TestBoot_Cancelled(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("svc", func() int { return 1 }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Boot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, c.Inspect("svc").Pending)
}
