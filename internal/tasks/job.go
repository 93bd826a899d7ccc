package tasks

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilJob is returned when a nil Func is run.
var ErrNilJob = errors.New("nil job func")

// Job is a unit of detached work.
type Job interface {
	Run(ctx context.Context) error
}

// Func adapts a closure to a Job.
type Func func(ctx context.Context) error

// Run implements Job. A nil Func fails instead of panicking.
func (f Func) Run(ctx context.Context) error {
	if f == nil {
		return fmt.Errorf("tasks: %w", ErrNilJob)
	}
	return f(ctx)
}
