// Package retry wraps individual provider calls with bounded retries and
// an increasing delay schedule. It is applied around submit calls
// (generate, extend), not around polling loops, which have their own
// cadence.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Defaults matching the provider call budget.
var defaultDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

const defaultAttempts = 3

// Config holds the retry budget for one wrapped operation.
type Config struct {
	attempts int
	delays   []time.Duration
	retryIf  func(error) bool
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a retry budget.
type Option func(*Config)

// WithAttempts sets the maximum number of attempts.
func WithAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithDelays sets the delay schedule between attempts. When there are
// more attempts than delays, the last delay repeats.
func WithDelays(delays []time.Duration) Option {
	return func(c *Config) {
		if len(delays) > 0 {
			c.delays = delays
		}
	}
}

// WithRetryIf sets the classifier deciding whether an error is worth
// another attempt. Errors it rejects short-circuit immediately.
func WithRetryIf(retryIf func(error) bool) Option {
	return func(c *Config) {
		if retryIf != nil {
			c.retryIf = retryIf
		}
	}
}

// withSleep replaces the delay function, used by tests.
func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Config) { c.sleep = sleep }
}

// Do runs fn up to the configured number of attempts. Non-retryable
// errors surface immediately; after the budget is exhausted the last
// error surfaces unchanged. Context cancellation aborts the wait between
// attempts.
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	cfg := &Config{
		attempts: defaultAttempts,
		delays:   defaultDelays,
		retryIf:  func(error) bool { return true },
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		if attempt > 0 {
			if err := cfg.sleep(ctx, cfg.delayFor(attempt-1)); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !cfg.retryIf(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

func (c *Config) delayFor(i int) time.Duration {
	if i >= len(c.delays) {
		return c.delays[len(c.delays)-1]
	}
	return c.delays[i]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry: context cancelled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
