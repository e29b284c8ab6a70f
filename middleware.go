package keel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Middleware provides hooks for intercepting container resolution.
// Middleware can be used for logging, access checks, testing, etc.
type Middleware interface {
	// BeforeResolve is called before resolving an entry.
	// Return error to abort resolution.
	BeforeResolve(ctx context.Context, id string) error

	// AfterResolve is called after resolving an entry.
	// Called even if resolution failed (value and err may both be set).
	AfterResolve(ctx context.Context, id string, value any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{
		middleware: make([]Middleware, 0),
	}
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	if middleware != nil {
		m.middleware = append(m.middleware, middleware)
	}
}

// beforeResolve calls BeforeResolve on all middleware.
func (m *middlewareChain) beforeResolve(ctx context.Context, id string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeResolve(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// afterResolve calls AfterResolve on all middleware.
func (m *middlewareChain) afterResolve(ctx context.Context, id string, value any, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterResolve(ctx, id, value, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeResolveFunc func(ctx context.Context, id string) error
	AfterResolveFunc  func(ctx context.Context, id string, value any, err error) error
}

// BeforeResolve implements Middleware.
func (f *FuncMiddleware) BeforeResolve(ctx context.Context, id string) error {
	if f.BeforeResolveFunc != nil {
		return f.BeforeResolveFunc(ctx, id)
	}
	return nil
}

// AfterResolve implements Middleware.
func (f *FuncMiddleware) AfterResolve(ctx context.Context, id string, value any, err error) error {
	if f.AfterResolveFunc != nil {
		return f.AfterResolveFunc(ctx, id, value, err)
	}
	return nil
}

// LoggingMiddleware logs every resolution with its duration.
// Failures are logged at warn level, successes at debug.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		mu      sync.Mutex
		started []time.Time
	)

	return &FuncMiddleware{
		BeforeResolveFunc: func(_ context.Context, _ string) error {
			mu.Lock()
			started = append(started, time.Now())
			mu.Unlock()
			return nil
		},
		AfterResolveFunc: func(_ context.Context, id string, value any, err error) error {
			var elapsed time.Duration

			mu.Lock()
			if n := len(started); n > 0 {
				elapsed = time.Since(started[n-1])
				started = started[:n-1]
			}
			mu.Unlock()

			if err != nil {
				logger.Warn("resolve failed", zap.String("entry", id), zap.Duration("elapsed", elapsed), zap.Error(err))
				return nil
			}

			logger.Debug("resolved", zap.String("entry", id), zap.Duration("elapsed", elapsed))
			return nil
		},
	}
}
