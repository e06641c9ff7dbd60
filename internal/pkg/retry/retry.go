// Package retry runs an operation a fixed number of times with linear
// backoff and a per-attempt timeout. Each attempt produces an explicit
// Outcome that the loop inspects; no panics or sentinel control flow.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

// Policy controls how many times an operation runs and how long it waits
// between attempts. The wait before attempt n+1 is Backoff*n.
type Policy struct {
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration

	// sleep is swapped in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy is 3 attempts, 0.5s/1.0s backoff, 10s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		Backoff:        500 * time.Millisecond,
		AttemptTimeout: 10 * time.Second,
	}
}

// Outcome is the result of a single attempt.
type Outcome[T any] struct {
	Attempt int
	Value   T
	Err     error
}

// OK reports whether the attempt succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// ExhaustedError is returned when every attempt failed. Last is the error
// of the final attempt, unchanged.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Delay returns the wait before the attempt following attempt n (1-based).
func (p Policy) Delay(n int) time.Duration {
	return p.Backoff * time.Duration(n)
}

// Attempt runs fn once under the per-attempt timeout.
func Attempt[T any](ctx context.Context, p Policy, n int, fn func(context.Context) (T, error)) Outcome[T] {
	attemptCtx := ctx
	if p.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		defer cancel()
	}
	v, err := fn(attemptCtx)
	return Outcome[T]{Attempt: n, Value: v, Err: err}
}

// Do runs fn until it succeeds or the policy's attempts are used up.
// A cancelled parent context ends the loop early with the context error
// (or the last attempt error if one exists).
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last Outcome[T]
	for n := 1; n <= attempts; n++ {
		last = Attempt(ctx, p, n, fn)
		if last.OK() {
			if n > 1 {
				logger.Info("retry: succeeded", "op", op, "attempt", n)
			}
			return last.Value, nil
		}
		if ctx.Err() != nil {
			return zero, last.Err
		}
		if n == attempts {
			break
		}

		delay := p.Delay(n)
		logger.Warn("retry: attempt failed",
			"op", op, "attempt", n, "of", attempts, "wait", delay, "error", last.Err)
		if err := sleep(ctx, delay); err != nil {
			return zero, last.Err
		}
	}

	return zero, &ExhaustedError{Attempts: last.Attempt, Last: last.Err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
