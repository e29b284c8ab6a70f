// Package events provides a priority-ordered event bus whose dispatch is a
// left fold: every listener receives the value returned by the previous one.
//
// Listeners are grouped by event name, then priority (ascending), then
// identity (registration order); one identity may hold several callables.
// Listeners added with AddOnce are dropped right after their first visit.
//
//	bus := events.New()
//	bus.Add("price", func(v any) any { return v.(int) + 1 }, events.WithPriority(5))
//	bus.Add("price", func(v any) any { return v.(int) * 2 })
//	total, _ := bus.Dispatch(ctx, "price", 3) // 8
//
// A Bus is meant for one goroutine at a time. Listeners run without any
// lock held, so they may add, remove or dispatch re-entrantly.
package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bus dispatches named events to prioritized listeners.
type Bus struct {
	// event -> priority -> identities and their callables
	listeners map[string]map[int]*bucket

	// event -> priority -> identities added with AddOnce
	once map[string]map[int]map[string]bool

	// event -> identity -> invocations
	invoked map[string]map[string]int

	// event -> nesting depth of running dispatches
	active map[string]int

	// event -> time spent inside listeners
	elapsed map[string]time.Duration

	logger  *zap.Logger
	metrics *Metrics
	mu      sync.Mutex
}

// bucket keeps the identities of one priority in registration order.
type bucket struct {
	order     []string
	callables map[string][]Handler
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string]map[int]*bucket),
		once:      make(map[string]map[int]map[string]bool),
		invoked:   make(map[string]map[string]int),
		active:    make(map[string]int),
		elapsed:   make(map[string]time.Duration),
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add registers listener for event and returns its identity. Adding the
// same listener twice queues it twice under one identity.
func (b *Bus) Add(event string, listener any, opts ...AddOption) (string, error) {
	return b.add(event, listener, false, opts)
}

// AddOnce is like Add, but the identity is removed from this priority as soon
// as a dispatch has run its callables.
func (b *Bus) AddOnce(event string, listener any, opts ...AddOption) (string, error) {
	return b.add(event, listener, true, opts)
}

func (b *Bus) add(event string, listener any, once bool, opts []AddOption) (string, error) {
	cfg := addConfig{priority: DefaultPriority}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	id, err := ListenerID(listener)
	if err != nil {
		return "", err
	}

	handler, err := toHandler(listener)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	priorities, ok := b.listeners[event]
	if !ok {
		priorities = make(map[int]*bucket)
		b.listeners[event] = priorities
	}

	bk, ok := priorities[cfg.priority]
	if !ok {
		bk = &bucket{callables: make(map[string][]Handler)}
		priorities[cfg.priority] = bk
	}

	if _, exists := bk.callables[id]; !exists {
		bk.order = append(bk.order, id)
	}
	bk.callables[id] = append(bk.callables[id], handler)

	if once {
		marks, ok := b.once[event]
		if !ok {
			marks = make(map[int]map[string]bool)
			b.once[event] = marks
		}
		if marks[cfg.priority] == nil {
			marks[cfg.priority] = make(map[string]bool)
		}
		marks[cfg.priority][id] = true
	}

	b.logger.Debug("listener added",
		zap.String("event", event),
		zap.String("listener", id),
		zap.Int("priority", cfg.priority),
		zap.Bool("once", once),
	)

	return id, nil
}

// Has reports whether event has at least one matching registration.
func (b *Bus) Has(event string, opts ...Match) bool {
	return b.Count(event, opts...) > 0
}

// Count returns the number of matching registered callables.
func (b *Bus) Count(event string, opts ...Match) int {
	m := newMatcher(opts)
	if m.invalid {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for p, bk := range b.listeners[event] {
		if !m.priorityOK(p) {
			continue
		}
		for id, callables := range bk.callables {
			if m.idOK(id) {
				n += len(callables)
			}
		}
	}

	return n
}

// Remove drops every matching registration and returns how many callables
// were removed.
func (b *Bus) Remove(event string, opts ...Match) int {
	m := newMatcher(opts)
	if m.invalid {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for p, bk := range b.listeners[event] {
		if !m.priorityOK(p) {
			continue
		}

		for _, id := range append([]string(nil), bk.order...) {
			if m.idOK(id) {
				removed += b.dropLocked(event, p, id)
			}
		}
	}

	if removed > 0 {
		b.logger.Debug("listeners removed", zap.String("event", event), zap.Int("count", removed))
	}

	return removed
}

// Dispatch runs the listeners of event in order, threading payload through
// them: each listener gets the previous result as its payload, and the last
// result is returned. Without listeners, payload is returned unchanged.
// args are passed to every listener as-is. The first listener error stops
// the dispatch and is returned unmodified.
func (b *Bus) Dispatch(ctx context.Context, event string, payload any, args ...any) (any, error) {
	b.enter(event)
	defer b.exit(event)

	priorities := b.priorities(event)
	if len(priorities) == 0 {
		b.metrics.observe(event, 0, 0)

		return payload, nil
	}

	var (
		value       = payload
		invocations int
		start       = time.Now()
	)

	defer func() {
		elapsed := time.Since(start)

		b.mu.Lock()
		b.elapsed[event] += elapsed
		b.mu.Unlock()

		b.metrics.observe(event, invocations, elapsed)

		b.logger.Debug("event dispatched",
			zap.String("event", event),
			zap.Int("invocations", invocations),
			zap.Duration("elapsed", elapsed),
		)
	}()

	for _, p := range priorities {
		for _, id := range b.identities(event, p) {
			for _, handler := range b.callables(event, p, id) {
				b.countInvocation(event, id)
				invocations++

				result, err := handler(ctx, value, args...)
				if err != nil {
					return nil, err
				}

				value = result
			}

			b.completeOnce(event, p, id)
		}
	}

	return value, nil
}

// DispatchAs dispatches payload and asserts the result back to T.
func DispatchAs[T any](ctx context.Context, b *Bus, event string, payload T, args ...any) (T, error) {
	var zero T

	result, err := b.Dispatch(ctx, event, payload, args...)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrPayloadType(event, zero, result)
	}

	return typed, nil
}

// Dispatched returns the cumulative number of listener invocations for
// event, optionally for one identity.
func (b *Bus) Dispatched(event string, opts ...Match) int {
	m := newMatcher(opts)
	if m.invalid {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for id, count := range b.invoked[event] {
		if m.idOK(id) {
			n += count
		}
	}

	return n
}

// InEvent reports whether event is being dispatched. An empty name asks
// whether any dispatch is running.
func (b *Bus) InEvent(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event == "" {
		return len(b.active) > 0
	}

	return b.active[event] > 0
}

// Elapsed returns the total time spent in listeners of event.
func (b *Bus) Elapsed(event string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.elapsed[event]
}

// Events returns the sorted names of events with registered listeners.
func (b *Bus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (b *Bus) enter(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active[event]++
}

func (b *Bus) exit(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active[event]--; b.active[event] <= 0 {
		delete(b.active, event)
	}
}

// priorities returns the registered priorities of event in ascending order.
func (b *Bus) priorities(event string) []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]int, 0, len(b.listeners[event]))
	for p := range b.listeners[event] {
		out = append(out, p)
	}
	sort.Ints(out)

	return out
}

// identities returns a copy of the identity order at one priority.
func (b *Bus) identities(event string, priority int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	bk, ok := b.listeners[event][priority]
	if !ok {
		return nil
	}

	return append([]string(nil), bk.order...)
}

// callables returns a copy of an identity's callables.
func (b *Bus) callables(event string, priority int, id string) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()

	bk, ok := b.listeners[event][priority]
	if !ok {
		return nil
	}

	return append([]Handler(nil), bk.callables[id]...)
}

func (b *Bus) countInvocation(event, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts, ok := b.invoked[event]
	if !ok {
		counts = make(map[string]int)
		b.invoked[event] = counts
	}
	counts[id]++
}

// completeOnce drops id at priority if it was added with AddOnce.
func (b *Bus) completeOnce(event string, priority int, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.once[event][priority][id] {
		b.dropLocked(event, priority, id)
	}
}

// dropLocked removes one identity from a priority bucket and prunes empty
// maps. It returns the number of callables removed (must hold mu).
func (b *Bus) dropLocked(event string, priority int, id string) int {
	bk, ok := b.listeners[event][priority]
	if !ok {
		return 0
	}

	removed := len(bk.callables[id])
	delete(bk.callables, id)

	for i, existing := range bk.order {
		if existing == id {
			bk.order = append(bk.order[:i], bk.order[i+1:]...)
			break
		}
	}

	if marks := b.once[event][priority]; marks != nil {
		delete(marks, id)
		if len(marks) == 0 {
			delete(b.once[event], priority)
		}
		if len(b.once[event]) == 0 {
			delete(b.once, event)
		}
	}

	if len(bk.order) == 0 {
		delete(b.listeners[event], priority)
	}
	if len(b.listeners[event]) == 0 {
		delete(b.listeners, event)
	}

	return removed
}
