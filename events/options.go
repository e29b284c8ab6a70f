package events

import "go.uber.org/zap"

// DefaultPriority is the priority of listeners added without WithPriority.
const DefaultPriority = 10

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the structured logger used for bus diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records dispatches in m.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// AddOption configures a single Add or AddOnce call.
type AddOption func(*addConfig)

type addConfig struct {
	priority int
}

// WithPriority sets the listener priority. Lower priorities run first.
func WithPriority(priority int) AddOption {
	return func(c *addConfig) {
		c.priority = priority
	}
}

// Match narrows Has, Count, Remove and Dispatched to some registrations.
type Match func(*matcher)

type matcher struct {
	id          string
	hasID       bool
	priority    int
	hasPriority bool
	invalid     bool
}

// ForListener matches registrations of the listener's identity.
func ForListener(l any) Match {
	return func(m *matcher) {
		id, err := ListenerID(l)
		if err != nil {
			m.invalid = true
			return
		}
		m.id, m.hasID = id, true
	}
}

// ForID matches registrations with the given identity.
func ForID(id string) Match {
	return func(m *matcher) {
		m.id, m.hasID = id, true
	}
}

// AtPriority matches registrations at one priority.
func AtPriority(priority int) Match {
	return func(m *matcher) {
		m.priority, m.hasPriority = priority, true
	}
}

func newMatcher(opts []Match) matcher {
	var m matcher
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

func (m matcher) priorityOK(p int) bool {
	return !m.hasPriority || m.priority == p
}

func (m matcher) idOK(id string) bool {
	return !m.hasID || m.id == id
}
