package retry

import (
	"context"
	"errors"
	"time"
)

// ErrAborted wraps the last error when the abort predicate stops a retry loop.
var ErrAborted = errors.New("retry aborted by predicate")

// Policy controls a retry loop around an idempotent operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff yields the delay before each retry. Defaults to
	// DefaultBackoffStrategy when nil.
	Backoff BackoffStrategy
	// Abort, when set, short-circuits the loop for errors known to be
	// unrecoverable (e.g. a 401 from the identity provider API).
	Abort func(error) bool
}

// DefaultPolicy suits provider API calls: a handful of attempts with
// exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		Backoff:     DefaultBackoffStrategy(),
	}
}

// Do runs fn under the policy, returning the first success or the last error.
// Context cancellation is honored between attempts.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultBackoffStrategy()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff.NextInterval(attempt - 1)):
			}
		}

		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if p.Abort != nil && p.Abort(err) {
			return zero, errors.Join(ErrAborted, err)
		}
	}

	return zero, lastErr
}

// Do0 is Do for operations without a result value.
func Do0(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
