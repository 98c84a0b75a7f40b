package timeout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned when guarded work exceeds its budget.
var ErrTimeout = errors.New("execution timed out")

// PanicError carries a panic recovered from guarded work.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Guard bounds a unit of work to a wall-clock budget.
//
// A zero or negative budget runs fn without any watchdog. Panics raised by fn
// are recovered and returned as *PanicError in every implementation.
type Guard interface {
	Run(ctx context.Context, budget time.Duration, fn func(ctx context.Context) error) error

	// Preemptive reports whether Run returns at the deadline even if fn
	// has not. When true, fn may still be running after Run returns.
	Preemptive() bool
}

// Mode names a guard implementation.
type Mode string

const (
	ModeAuto        Mode = "auto"
	ModePreemptive  Mode = "preemptive"
	ModeCooperative Mode = "cooperative"
)

// ForMode returns the guard for mode. ModeAuto and "" select Default().
func ForMode(mode Mode) (Guard, error) {
	switch mode {
	case "", ModeAuto:
		return Default(), nil
	case ModePreemptive:
		return Preemptive{}, nil
	case ModeCooperative:
		return Cooperative{}, nil
	}
	return nil, fmt.Errorf("unknown timeout mode %q", mode)
}

// Preemptive runs fn on a watchdog goroutine and returns ErrTimeout as soon as
// the budget elapses. The context passed to fn is cancelled at the deadline;
// work that ignores it keeps running in the background until it returns, and
// the caller must not call into the same state again until then.
type Preemptive struct{}

func (Preemptive) Preemptive() bool { return true }

func (Preemptive) Run(ctx context.Context, budget time.Duration, fn func(ctx context.Context) error) error {
	if budget <= 0 {
		return call(ctx, fn)
	}

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- call(runCtx, fn)
	}()

	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		return expired(ctx, done, budget)
	}
}

// expired reports the deadline unless fn's result is already waiting in
// done, which happens when both select cases became ready together.
func expired(parent context.Context, done <-chan error, budget time.Duration) error {
	select {
	case err := <-done:
		return err
	default:
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	return fmt.Errorf("%w after %s", ErrTimeout, budget)
}

// Cooperative runs fn in the caller's goroutine. A timer flips a flag and
// cancels fn's context when the budget elapses; the timeout is reported only
// once fn returns. A CPU-bound fn that never checks its context therefore runs
// to completion before the overrun is noticed. This is the fallback for
// platforms without asynchronous goroutine preemption (js/wasm, wasip1).
type Cooperative struct{}

func (Cooperative) Preemptive() bool { return false }

func (Cooperative) Run(ctx context.Context, budget time.Duration, fn func(ctx context.Context) error) error {
	if budget <= 0 {
		return call(ctx, fn)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var expired atomic.Bool
	timer := time.AfterFunc(budget, func() {
		expired.Store(true)
		cancel()
	})
	defer timer.Stop()

	err := call(runCtx, fn)
	if expired.Load() {
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w after %s: %w", ErrTimeout, budget, err)
		}
		return fmt.Errorf("%w after %s", ErrTimeout, budget)
	}
	return err
}

func call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}
