package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 4, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("still locked")
	})

	if err == nil {
		t.Fatal("expected the last error")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxAttempts: 5, Backoff: time.Millisecond, Retryable: IsLockContention}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("constraint violation")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 100, Backoff: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func() error {
		return errors.New("database is locked")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsLockContention(t *testing.T) {
	testCases := []struct {
		err  error
		want bool
	}{
		{errors.New("database is locked"), true},
		{errors.New("SQLSTATE 40001: could not serialize access"), true},
		{errors.New("deadlock detected"), true},
		{errors.New("duplicate key value"), false},
		{nil, false},
	}

	for _, tc := range testCases {
		if got := IsLockContention(tc.err); got != tc.want {
			t.Errorf("IsLockContention(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
