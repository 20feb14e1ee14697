package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep() Option {
	return withSleep(func(context.Context, time.Duration) error { return nil })
}

func TestDoReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, noSleep())
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	transient := errors.New("connection reset")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	}, noSleep())
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoExhaustsBudgetAndReturnsLastError(t *testing.T) {
	transient := errors.New("connection reset")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return transient
	}, noSleep())
	if !errors.Is(err, transient) {
		t.Fatalf("Do() error = %v, want %v", err, transient)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	terminal := errors.New("invalid credentials")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return terminal
	}, noSleep(), WithRetryIf(func(err error) bool {
		return !errors.Is(err, terminal)
	}))
	if !errors.Is(err, terminal) {
		t.Fatalf("Do() error = %v, want %v", err, terminal)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1: terminal errors must not be retried", calls)
	}
}

func TestDoDelaySchedule(t *testing.T) {
	var waited []time.Duration
	transient := errors.New("timeout")
	err := Do(context.Background(), func(context.Context) error {
		return transient
	}, WithAttempts(5), withSleep(func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}))
	if !errors.Is(err, transient) {
		t.Fatalf("Do() error = %v, want %v", err, transient)
	}

	// Five attempts wait four times: 1s, 3s, 5s, then the last delay
	// repeats.
	want := []time.Duration{time.Second, 3 * time.Second, 5 * time.Second, 5 * time.Second}
	if len(waited) != len(want) {
		t.Fatalf("waited %v, want %v", waited, want)
	}
	for i := range want {
		if waited[i] != want[i] {
			t.Fatalf("waited %v, want %v", waited, want)
		}
	}
}

func TestDoAbortsWaitOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transient := errors.New("unreachable")
	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return transient
	}, WithDelays([]time.Duration{time.Hour}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}
