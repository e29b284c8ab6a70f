package keel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clock is an interface autowired through As.
type Clock interface {
	Now() time.Time
}

type fixedClock struct {
	at time.Time
}

func (c *fixedClock) Now() time.Time { return c.at }

func newFixedClock() *fixedClock {
	return &fixedClock{at: time.Unix(0, 0)}
}

type Mailer struct {
	Logger  *Logger
	Host    string
	Port    int
	Timeout time.Duration
	Clock   Clock
}

type MailerParams struct {
	In

	Logger  *Logger
	Host    string        `param:"mail.host"`
	Port    int           `default:"25"`
	Timeout time.Duration `default:"5s"`
	Clock   Clock         `optional:"true"`
}

func newMailer(p MailerParams) *Mailer {
	return &Mailer{
		Logger:  p.Logger,
		Host:    p.Host,
		Port:    p.Port,
		Timeout: p.Timeout,
		Clock:   p.Clock,
	}
}

type Cache struct {
	Size int
}

func newCache(size int) *Cache {
	return &Cache{Size: size}
}

type Repository struct {
	DB    *Database
	Cache *Cache
}

func newRepository(db *Database, cache *Cache) *Repository {
	return &Repository{DB: db, Cache: cache}
}

func newDatabase(logger *Logger) (*Database, error) {
	if logger == nil {
		return nil, errors.New("logger required")
	}
	return &Database{Logger: logger, DSN: "memory"}, nil
}

func TestAutowire_RegisteredDependencies(t *testing.T) {
	c := New()

	logger := &Logger{prefix: "app"}
	require.NoError(t, c.Register(IDOf[*Logger](), logger))
	require.NoError(t, Declare(c, newDatabase))
	require.NoError(t, c.Register(IDOf[*Database](), nil))

	info := c.Inspect(IDOf[*Database]())
	assert.True(t, info.Autowired)
	assert.True(t, info.Pending)
	assert.Equal(t, []string{IDOf[*Logger]()}, info.Dependencies)

	db, err := ResolveType[*Database](c)
	require.NoError(t, err)
	assert.Same(t, logger, db.Logger)

	again, err := ResolveType[*Database](c)
	require.NoError(t, err)
	assert.Same(t, db, again)
}

func TestAutowire_NotDeclared(t *testing.T) {
	c := New()

	err := c.Register(IDOf[*Database](), nil)

	require.Error(t, err)
	assert.True(t, IsEntryNotFound(err))
}

func TestAutowire_ConstructorError(t *testing.T) {
	c := New()
	boom := errors.New("disk full")

	require.NoError(t, Provide(c, func() (*Cache, error) { return nil, boom }))

	_, err := c.Get(IDOf[*Cache]())

	require.Error(t, err)
	assert.Contains(t, contextValues(err, "operation"), "construct")
	assert.ErrorIs(t, innermostCause(err), boom)
}

func TestAutowire_NilOverrideIsNotAMatch(t *testing.T) {
	c := New()

	require.NoError(t, c.SetParameter("logger", nil))
	require.NoError(t, Provide(c, newDatabase, ParamNames("logger")))

	_, err := c.Get(IDOf[*Database]())

	require.Error(t, err)
	assert.True(t, IsMissingRequiredParameter(err))
}

func TestAutowire_OneLevelImplicit(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), &Logger{prefix: "app"}))
	require.NoError(t, c.SetParameter("size", 64))
	require.NoError(t, Declare(c, newDatabase))
	require.NoError(t, Declare(c, newCache, ParamNames("size")))
	require.NoError(t, Declare(c, newRepository))
	require.NoError(t, c.Register(IDOf[*Repository](), nil))

	repo, err := ResolveType[*Repository](c)
	require.NoError(t, err)
	assert.Equal(t, "memory", repo.DB.DSN)
	assert.Equal(t, 64, repo.Cache.Size)

	// Implicitly built dependencies are not registered.
	assert.False(t, c.Has(IDOf[*Database]()))
	assert.False(t, c.Has(IDOf[*Cache]()))
}

func TestAutowire_DepthBound(t *testing.T) {
	c := New()

	// Repository -> Database -> Logger, none registered.
	require.NoError(t, Declare(c, func() *Logger { return &Logger{} }))
	require.NoError(t, Declare(c, newDatabase))
	require.NoError(t, Declare(c, newCache, ParamNames("size")))
	require.NoError(t, c.SetParameter("size", 1))
	require.NoError(t, Declare(c, newRepository))
	require.NoError(t, c.Register(IDOf[*Repository](), nil))

	_, err := c.Get(IDOf[*Repository]())

	require.Error(t, err)
	assert.True(t, IsMissingRequiredParameter(err))
	assert.Contains(t, contextValues(err, "type"), IDOf[*Database]())

	// Registering the second level explicitly fixes it.
	require.NoError(t, c.Register(IDOf[*Logger](), nil))

	repo, err := ResolveType[*Repository](c)
	require.NoError(t, err)
	assert.NotNil(t, repo.DB.Logger)
}

func TestAutowire_InStruct(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), &Logger{prefix: "mail"}))
	require.NoError(t, c.SetParameter("mail.host", "smtp.local"))
	require.NoError(t, Provide(c, newMailer))

	m, err := ResolveType[*Mailer](c)
	require.NoError(t, err)

	assert.Equal(t, "mail", m.Logger.prefix)
	assert.Equal(t, "smtp.local", m.Host)
	assert.Equal(t, 25, m.Port)
	assert.Equal(t, 5*time.Second, m.Timeout)
	assert.Nil(t, m.Clock)
}

func TestAutowire_InStructOverrides(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), &Logger{}))
	require.NoError(t, c.SetParameter("mail.host", "smtp.local"))
	require.NoError(t, c.SetParameter("port", 2525))
	require.NoError(t, c.SetParameter("timeout", time.Minute))
	require.NoError(t, Declare(c, newFixedClock, As(new(Clock))))
	require.NoError(t, Provide(c, newMailer))

	m, err := ResolveType[*Mailer](c)
	require.NoError(t, err)

	assert.Equal(t, 2525, m.Port)
	assert.Equal(t, time.Minute, m.Timeout)
	require.NotNil(t, m.Clock)
	assert.Equal(t, time.Unix(0, 0), m.Clock.Now())
}

func TestAutowire_MissingBuiltin(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), &Logger{}))
	require.NoError(t, Provide(c, newMailer))

	_, err := c.Get(IDOf[*Mailer]())

	require.Error(t, err)
	assert.True(t, IsMissingRequiredParameter(err))
	assert.Contains(t, contextValues(err, "parameter"), "mail.host")
}

func TestAutowire_OverrideKindMismatch(t *testing.T) {
	c := New()

	require.NoError(t, c.SetParameter("size", "large"))
	require.NoError(t, Provide(c, newCache, ParamNames("size")))

	_, err := c.Get(IDOf[*Cache]())

	require.Error(t, err)
	assert.True(t, IsMissingRequiredParameter(err))
}

func TestAutowire_OverrideConvertsNamedKinds(t *testing.T) {
	type Port int

	c := New()

	require.NoError(t, c.SetParameter("port", Port(8080)))
	require.NoError(t, Provide(c, func(port int) *Cache { return &Cache{Size: port} }, ParamNames("port")))

	cache, err := ResolveType[*Cache](c)
	require.NoError(t, err)
	assert.Equal(t, 8080, cache.Size)
}

func TestAutowire_CallableOverrides(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), &Logger{prefix: "resolved"}))

	t.Run("no arguments", func(t *testing.T) {
		c := New()
		require.NoError(t, c.SetParameter("size", func() int { return 3 }))
		require.NoError(t, Provide(c, newCache, ParamNames("size")))
		assert.Equal(t, 3, Must[*Cache](c, IDOf[*Cache]()).Size)
	})

	t.Run("container argument", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Register("configured.size", 9))
		require.NoError(t, c.SetParameter("size", func(c Container) (int, error) {
			return Resolve[int](c, "configured.size")
		}))
		require.NoError(t, Provide(c, newCache, ParamNames("size")))
		assert.Equal(t, 9, Must[*Cache](c, IDOf[*Cache]()).Size)
	})

	t.Run("typed argument", func(t *testing.T) {
		require.NoError(t, c.SetParameter("logger", func(l *Logger) *Logger {
			return &Logger{prefix: l.prefix + "+wrapped"}
		}))
		require.NoError(t, Provide(c, newDatabase, ParamNames("logger")))

		db, err := ResolveType[*Database](c)
		require.NoError(t, err)
		assert.Equal(t, "resolved+wrapped", db.Logger.prefix)
	})

	t.Run("callable error", func(t *testing.T) {
		c := New()
		boom := errors.New("boom")
		require.NoError(t, c.SetParameter("size", func() (int, error) { return 0, boom }))
		require.NoError(t, Provide(c, newCache, ParamNames("size")))

		_, err := c.Get(IDOf[*Cache]())
		require.Error(t, err)
		assert.Contains(t, contextValues(err, "operation"), "parameter size")
	})
}

func TestAutowire_FuncParameterPassedThrough(t *testing.T) {
	type Handler func() string

	c := New()

	require.NoError(t, c.SetParameter("handler", Handler(func() string { return "handled" })))
	require.NoError(t, Provide(c, func(h Handler) *testService {
		return &testService{value: h()}
	}, ParamNames("handler")))

	svc, err := ResolveType[*testService](c)
	require.NoError(t, err)
	assert.Equal(t, "handled", svc.value)
}

func TestAutowire_ContainerParameter(t *testing.T) {
	c := New()

	require.NoError(t, Provide(c, func(inner Container) *testService {
		return &testService{value: "has container"}
	}))

	svc, err := ResolveType[*testService](c)
	require.NoError(t, err)
	assert.Equal(t, "has container", svc.value)
}

func TestAutowire_Cycle(t *testing.T) {
	type A struct{}
	type B struct{}

	c := New()

	require.NoError(t, Provide(c, func(*B) *A { return &A{} }))
	require.NoError(t, Provide(c, func(*A) *B { return &B{} }))

	_, err := c.Get(IDOf[*A]())

	require.Error(t, err)
	assert.True(t, IsCircularDependency(err))
}

func TestAutowire_RegisteredTypeMismatch(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[*Logger](), "not a logger"))
	require.NoError(t, Provide(c, newDatabase))

	_, err := c.Get(IDOf[*Database]())

	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
}

func TestAutowire_PointerAdaptation(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(IDOf[Logger](), Logger{prefix: "by value"}))
	require.NoError(t, Provide(c, newDatabase))

	db, err := ResolveType[*Database](c)
	require.NoError(t, err)
	assert.Equal(t, "by value", db.Logger.prefix)
}

func TestDeclare_Invalid(t *testing.T) {
	c := New()

	tests := []struct {
		name        string
		constructor any
	}{
		{"nil", nil},
		{"not a function", 42},
		{"variadic", func(...int) *Cache { return nil }},
		{"no result", func() {}},
		{"only error", func() error { return nil }},
		{"error not last", func() (error, *Cache) { return nil, nil }},
		{"three results", func() (*Cache, int, error) { return nil, 0, nil }},
		{"default on struct field", func(struct {
			In
			Logger *Logger `default:"x"`
		}) *Cache {
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Declare(c, tt.constructor))
		})
	}

	assert.Error(t, Declare(c, newCache, ParamNames("a", "b")))
}

func TestDeclare_Duplicate(t *testing.T) {
	c := New()

	require.NoError(t, Declare(c, newCache))
	assert.Error(t, Declare(c, newCache))
	assert.NoError(t, Declare(c, newCache, WithID("second-cache")))
}

func TestDeclare_AsMustImplement(t *testing.T) {
	c := New()

	err := Declare(c, newCache, As(new(Clock)))

	assert.Error(t, err)
}

func TestDeclare_WithIDAutowiresUnderID(t *testing.T) {
	c := New()

	require.NoError(t, c.SetParameter("size", 12))
	require.NoError(t, Provide(c, newCache, WithID("cache.small"), ParamNames("size")))

	cache, err := Resolve[*Cache](c, "cache.small")
	require.NoError(t, err)
	assert.Equal(t, 12, cache.Size)
}

func TestProvide_AliasesAndOptions(t *testing.T) {
	c := New()

	require.NoError(t, Provide(c, newFixedClock,
		As(new(Clock)),
		WithAliases("clock"),
		WithRegisterOptions(Protected()),
	))

	clock, err := ResolveType[Clock](c)
	require.NoError(t, err)

	byAlias, err := Resolve[Clock](c, "clock")
	require.NoError(t, err)
	assert.Same(t, clock, byAlias)

	assert.True(t, c.Inspect("clock").Protected)
	assert.False(t, c.Remove(IDOf[*fixedClock]()))
}

type Limits struct {
	Burst int8
	Rate  uint8
}

type LimitsParams struct {
	In

	Burst int8  `default:"300"`
	Rate  uint8 `default:"200"`
}

func TestAutowire_DefaultOverflow(t *testing.T) {
	c := New()

	require.NoError(t, Provide(c, func(p LimitsParams) *Limits {
		return &Limits{Burst: p.Burst, Rate: p.Rate}
	}))

	_, err := c.Get(IDOf[*Limits]())

	require.Error(t, err)
	assert.Contains(t, contextValues(err, "operation"), "default for burst")
	assert.ErrorContains(t, innermostCause(err), "overflows int8")
}

func TestAutowire_DefaultFitsNarrowKind(t *testing.T) {
	c := New()

	require.NoError(t, c.SetParameter("burst", int8(100)))
	require.NoError(t, Provide(c, func(p LimitsParams) *Limits {
		return &Limits{Burst: p.Burst, Rate: p.Rate}
	}))

	l, err := ResolveType[*Limits](c)

	require.NoError(t, err)
	assert.Equal(t, int8(100), l.Burst)
	assert.Equal(t, uint8(200), l.Rate)
}
