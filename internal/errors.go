package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrLoopAlreadyRunning is returned when Run() is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("reactive: loop is already running")

	// ErrLoopTerminated is returned when work is submitted to a stopped loop.
	ErrLoopTerminated = errors.New("reactive: loop has been terminated")

	// ErrReentrantRun is returned when Run() is called from within the loop itself.
	ErrReentrantRun = errors.New("reactive: cannot call Run() from within the loop")
)

// EvalError wraps a fault raised while running a watcher's getter or callback.
type EvalError struct {
	Watcher    uint64
	Expression string

	// Phase is either "getter" or "callback".
	Phase string

	// User is true when the fault came from a user watcher (reported, never propagated).
	User bool

	Err error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("reactive: %s for watcher %q: %v", e.Phase, e.Expression, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// PanicError is a recovered panic turned into an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RunawayError describes a watcher that kept re-queueing itself within a single flush.
type RunawayError struct {
	Watcher    uint64
	Expression string
	User       bool
	Count      int
}

func (e *RunawayError) Error() string {
	if e.User {
		return fmt.Sprintf("You may have an infinite update loop in watcher with expression %q", e.Expression)
	}
	return "You may have an infinite update loop in a render function."
}

func recovered(r any) error {
	if err, ok := r.(error); ok {
		var pe *PanicError
		if errors.As(err, &pe) {
			return err
		}
	}
	return &PanicError{Value: r}
}
