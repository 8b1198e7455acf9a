// Package retry provides a small retry-with-backoff helper for outbound calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// transientError marks an error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true for it. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do calls fn up to attempts times, sleeping with exponential backoff between
// tries: baseDelay, doubled each attempt, capped at maxDelay. A nil retryable
// retries every error; otherwise only errors for which retryable returns true
// are retried — the first non-retryable error is returned as is. Backoff
// sleeps respect ctx cancellation.
func Do(ctx context.Context, attempts int, baseDelay, maxDelay time.Duration, fn func() error, retryable func(error) bool) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
