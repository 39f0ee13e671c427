// Package background runs detached fire-and-forget tasks. A task's error is
// delivered only to the runner's log sink, never back to whoever submitted it.
package background

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
)

type taskError struct {
	name string
	err  error
}

type Runner struct {
	ctx    context.Context
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	errs    chan taskError
	drained chan struct{}
}

// NewRunner creates a runner whose tasks inherit ctx's values but not its
// cancellation: once submitted, a task runs to completion.
func NewRunner(ctx context.Context, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Runner{
		ctx:     context.WithoutCancel(ctx),
		logger:  logger,
		errs:    make(chan taskError, 16),
		drained: make(chan struct{}),
	}
	go r.drain()
	return r
}

// Go submits fn. It returns immediately; submissions after Close are dropped.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("background task dropped after shutdown", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		if err := fn(r.ctx); err != nil {
			r.errs <- taskError{name: name, err: err}
		}
	}()
	return true
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops accepting tasks, waits for in-flight ones and flushes their errors.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.drained
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	close(r.errs)
	<-r.drained
}

func (r *Runner) drain() {
	defer close(r.drained)
	for te := range r.errs {
		r.logger.Error("background task failed", "task", te.name, "error", te.err)
	}
}
