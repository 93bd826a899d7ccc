// Package tasks runs fire-and-forget jobs, each on its own goroutine, behind
// an isolated error boundary.
//
// There is no queue, no concurrency limit and no retry: a submitted job starts
// immediately, runs once, and its error or panic is handed to the configured
// ErrorHandler instead of the submitter. Jobs run under a context detached
// from the submitter's cancellation, so a caller that returns (or a client
// that disconnects) does not abort work it started.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRunnerClosed is returned by Submit after Stop.
var ErrRunnerClosed = errors.New("task runner closed")

// PanicError carries a recovered job panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("job panicked: %v", e.Value) }

// Config tunes a Runner. The zero value is usable.
type Config struct {
	// ErrorHandler receives every job failure. It may be nil.
	ErrorHandler func(kind, key string, err error)
	// Timeout bounds each job; zero means no deadline.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Runner starts detached jobs and tracks them so shutdown can wait.
type Runner struct {
	cfg Config

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner returns a running Runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Submit starts job on a new goroutine and returns without waiting for it.
// kind labels metrics and logs (e.g. "enrich"); key identifies the subject
// (e.g. an item id).
func (r *Runner) Submit(ctx context.Context, kind, key string, job Job) error {
	if job == nil {
		return fmt.Errorf("tasks: %w", ErrNilJob)
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRunnerClosed
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	submittedTotal.WithLabelValues(kind).Inc()
	go r.run(context.WithoutCancel(ctx), kind, key, job)
	return nil
}

func (r *Runner) run(ctx context.Context, kind, key string, job Job) {
	defer r.wg.Done()
	inFlight.Inc()
	defer inFlight.Dec()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := r.safeRun(ctx, job)
	runDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err == nil {
		return
	}
	reason := "error"
	var pe *PanicError
	if errors.As(err, &pe) {
		reason = "panic"
	}
	failedTotal.WithLabelValues(kind, reason).Inc()
	r.safeHandleError(kind, key, err)
}

func (r *Runner) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return job.Run(ctx)
}

func (r *Runner) safeHandleError(kind, key string, err error) {
	if r.cfg.ErrorHandler == nil {
		r.cfg.Logger.Error().Err(err).Str("kind", kind).Str("key", key).Msg("detached job failed")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.cfg.Logger.Error().Interface("panic", rec).Str("kind", kind).Msg("task error handler panic")
		}
	}()
	r.cfg.ErrorHandler(kind, key, err)
}

// Wait blocks until every job submitted so far has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new jobs and waits for running ones until ctx is done. Running
// jobs are never cancelled. It is safe to call more than once.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	already := r.closed
	r.closed = true
	r.mu.Unlock()

	if !already {
		r.cfg.Logger.Info().Msg("task runner stopping, waiting for in-flight jobs")
	}
	if err := r.Wait(ctx); err != nil {
		r.cfg.Logger.Warn().Err(err).Msg("task runner stopped with jobs still running")
		return err
	}
	return nil
}

// Close lets Runner satisfy io.Closer; it waits without a deadline.
func (r *Runner) Close() error {
	return r.Stop(context.Background())
}
