package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 5 * time.Second
)

// RetryPolicy bounds how often a blocking call is repeated and how long to
// wait between attempts. The delay is fixed.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep overrides how waits are performed (useful for tests). It must
	// return early with the context error when ctx is done.
	Sleep func(context.Context, time.Duration) error
	// OnRetry is invoked after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy returns three attempts with a fixed five second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultRetryAttempts, Delay: DefaultRetryDelay}
}

// Attempts returns the effective attempt count (at least one).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is exhausted.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := p.sleep(ctx, p.Delay); err != nil {
			return err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p RetryPolicy) sleep(ctx context.Context, delay time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
