// Package retry implements the exponential-backoff execution wrapper used
// around account provisioning attempts. A Policy is a pure, stateless
// value; it is safe to share or to construct per call.
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"
)

// Policy configures exponential backoff behavior.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// BackoffMultiplier scales the delay for each subsequent retry.
	BackoffMultiplier float64
}

// DefaultPolicy returns the standard provisioning retry policy:
// 3 retries, 1s initial delay, 30s cap, doubling each attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// OnRetry is invoked before each retry wait for observability. attempt is
// the 1-based number of the retry about to happen, err the failure that
// triggered it, and nextDelay the wait before the retry runs.
type OnRetry func(attempt int, err error, nextDelay time.Duration)

// Delay computes the backoff delay for a zero-based attempt index:
// min(InitialDelay * BackoffMultiplier^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Execute runs op, retrying transient failures up to MaxRetries with
// exponential backoff. A failure classified as non-retryable by
// IsRetryable returns immediately; permanent errors do not earn more
// attempts. The backoff sleep respects context cancellation. After
// exhaustion the last error is returned.
func (p Policy) Execute(ctx context.Context, op func(ctx context.Context) error, onRetry OnRetry) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.MaxRetries {
			delay := p.Delay(attempt)
			if onRetry != nil {
				onRetry(attempt+1, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return lastErr
			}
		}
	}

	return lastErr
}

// retryableKinder is implemented by errors that carry their own
// retryability classification, such as provisioning errors.
type retryableKinder interface {
	Retryable() bool
}

// IsRetryable classifies an error as transient. Errors that know their own
// classification are trusted; otherwise network-class failures and
// automation-runtime unavailability are treated as retryable. Everything
// else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var kinder retryableKinder
	if errors.As(err, &kinder) {
		return kinder.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"no such host",
		"timeout",
		"timed out",
		"browser",
		"automation engine",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
