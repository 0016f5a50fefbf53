// Package retry provides the exponential-backoff executor shared by
// the Scanner's upstream HTTP calls and the Summarizer's chat-completion
// calls.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryableError marks an error as transient, signaling to Run that the
// attempt should be retried rather than returned immediately.
type RetryableError struct{ Err error }

// Retryable wraps err so Run treats it as transient. Returns nil if err
// is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// transientSubstrings are the error-text fragments that mark an LLM
// chat-completion failure as transient (§4.4). This substring match is
// deliberately ad-hoc: the chat-completion capability is an interface
// over an arbitrary backend, so there is no structured error type to
// inspect, only the message text a backend implementation chooses to
// return.
var transientSubstrings = []string{
	"503",
	"overloaded",
	"UNAVAILABLE",
	"429",
	"rate limit",
	"Network error",
}

// TransientChatError reports whether err's message matches one of the
// recognized transient LLM failure patterns.
func TransientChatError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, frag := range transientSubstrings {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// Driver executes a function under exponential backoff. The zero value
// is not usable; construct with New.
type Driver struct {
	maxAttempts int
	minDelay    time.Duration
}

// New builds a Driver with maxAttempts total attempts (minimum 1) and
// an initial backoff of minDelay, doubled after each failed attempt.
func New(maxAttempts int, minDelay time.Duration) *Driver {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Driver{maxAttempts: maxAttempts, minDelay: minDelay}
}

// Run executes fn up to d.maxAttempts times. Only errors satisfying
// isRetryable (wrapped with Retryable, or matching classify when
// classify is non-nil) trigger another attempt; any other error is
// returned immediately. If ctx is cancelled during a backoff sleep, Run
// returns ctx.Err().
func (d *Driver) Run(ctx context.Context, classify func(error) bool, fn func() error) error {
	delay := d.minDelay
	var lastErr error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		transient := isRetryable(err)
		if !transient && classify != nil {
			transient = classify(err)
		}
		if !transient {
			return err
		}

		if attempt < d.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
