// Package lifecycle coordinates named startup and shutdown hooks.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Hook is a named unit of startup or shutdown work.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Coordinator runs startup hooks concurrently, tracks readiness, and runs
// shutdown hooks concurrently once its context is cancelled.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startupWg  sync.WaitGroup
	startupMu  sync.Mutex
	startupErr []error

	shutdownMu sync.Mutex
	shutdown   []namedHook

	ready   bool
	readyMu sync.RWMutex
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup starts fn immediately in its own goroutine. Its error, if any,
// is reported by WaitForStartup.
func (c *Coordinator) OnStartup(name string, fn Hook) {
	c.startupWg.Go(func() {
		if err := fn(c.ctx); err != nil {
			c.startupMu.Lock()
			c.startupErr = append(c.startupErr, fmt.Errorf("%s: %w", name, err))
			c.startupMu.Unlock()
		}
	})
}

// OnShutdown registers fn to run when Shutdown is called. The context passed
// to fn expires with the shutdown timeout.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()
	c.shutdown = append(c.shutdown, namedHook{name: name, fn: fn})
}

// Ready returns true after all startup hooks have completed without error.
func (c *Coordinator) Ready() bool {
	c.readyMu.RLock()
	defer c.readyMu.RUnlock()
	return c.ready
}

// WaitForStartup blocks until all startup hooks have completed. The
// coordinator becomes ready only when none of them failed.
func (c *Coordinator) WaitForStartup() error {
	c.startupWg.Wait()

	c.startupMu.Lock()
	err := errors.Join(c.startupErr...)
	c.startupMu.Unlock()

	if err != nil {
		return err
	}

	c.readyMu.Lock()
	c.ready = true
	c.readyMu.Unlock()
	return nil
}

// Shutdown cancels the context, marks the coordinator not ready, and runs
// every shutdown hook concurrently within timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	c.readyMu.Lock()
	c.ready = false
	c.readyMu.Unlock()

	c.shutdownMu.Lock()
	hooks := c.shutdown
	c.shutdown = nil
	c.shutdownMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Go(func() {
			if err := h.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				mu.Unlock()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(errs...)
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
