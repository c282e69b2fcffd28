// Package retry guards remote calls against rate-limit failures with
// exponential backoff. Only rate-limit errors are retried; everything else
// is returned to the caller on the first failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Func is a remote call that can be retried.
type Func[T any] func(ctx context.Context) (T, error)

// Policy controls how Do retries. The zero value makes a single attempt.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration

	// OnRetry, when set, is called before each backoff sleep. attempt is the
	// 1-based number of the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait after the given 0-based failed attempt:
// InitialDelay * 2^attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return p.InitialDelay * time.Duration(1<<attempt)
}

// Do runs fn until it succeeds, fails with an error that is not rate-limit
// class, or MaxAttempts attempts have been made.
func Do[T any](ctx context.Context, p Policy, fn Func[T]) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("rate limited after %d attempts: %w", attempts, lastErr)
}

// IsRateLimited reports whether err signals a quota or rate-limit condition.
// Any error whose message mentions "429" or "RESOURCE_EXHAUSTED" qualifies, as
// does any error in the chain that reports RateLimited() == true.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rl interface{ RateLimited() bool }
	if errors.As(err, &rl) && rl.RateLimited() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// RateLimitError marks a provider error that carried a structured
// rate-limit status code.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return "429 RESOURCE_EXHAUSTED: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) RateLimited() bool { return true }

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
