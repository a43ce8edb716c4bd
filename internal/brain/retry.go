package brain

import (
	"context"
	"time"

	"github.com/minervabot/minerva/internal/reliability"
)

// RetryPolicy is an explicit retry contract: attempt budget, backoff curve,
// and a retryability predicate, testable without network I/O.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// JitterFraction widens each backoff by a uniform random amount up to
	// this fraction of the delay.
	JitterFraction float64
	// Retryable decides whether an attempt error is worth another try.
	// Defaults to IsRetryable.
	Retryable func(error) bool

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BackoffBase:    250 * time.Millisecond,
		BackoffCap:     4 * time.Second,
		JitterFraction: 0.5,
	}
}

// Do runs fn up to MaxAttempts times, backing off between attempts and
// aborting early on non-retryable errors or caller cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := reliability.Jitter(
				reliability.ExponentialBackoff(attempt-1, p.BackoffBase, p.BackoffCap),
				p.JitterFraction,
			)
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
