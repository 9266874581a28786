// Package retry is a small bounded retry-with-backoff primitive wrapping
// local-storage operations that can hit transient lock contention.
package retry

import (
	"context"
	"strings"
	"time"
)

// Defaults for local-storage contention.
const (
	DefaultMaxAttempts = 6
	DefaultBackoff     = 150 * time.Millisecond
)

// Policy is an explicit retry policy: max attempts, fixed backoff between
// attempts, and a classifier deciding which errors are worth retrying.
// A nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// LocalStorage is the policy used around local durable-store writes.
func LocalStorage() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Retryable:   IsLockContention,
	}
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last error is returned once attempts run out or an error is classified
// as non-retryable.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// IsLockContention classifies transient lock/busy errors from the local
// store. Anything else escalates immediately.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range []string{
		"lock",
		"busy",
		"deadlock",
		"could not serialize",
		"too many clients",
	} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
