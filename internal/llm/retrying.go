package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/audience-sizer/internal/pkg/retry"
)

// UpstreamError means the model could not be reached or kept failing after
// every retry. Err is the last attempt's error.
type UpstreamError struct {
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Failed to get a response from the LLM after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retrying retries a Completer under a fixed policy.
type Retrying struct {
	next   Completer
	policy retry.Policy
}

// NewRetrying wraps next with policy.
func NewRetrying(next Completer, policy retry.Policy) *Retrying {
	return &Retrying{next: next, policy: policy}
}

// Complete calls the wrapped Completer until it succeeds or attempts run out.
func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	calls := 0
	text, err := retry.Do(ctx, r.policy, "llm.complete", func(ctx context.Context) (string, error) {
		calls++
		return r.next.Complete(ctx, prompt)
	})
	if err == nil {
		return text, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Last
	}
	return "", &UpstreamError{Attempts: calls, Err: err}
}
