// Package resilience provides retry and error-classification helpers
// used by the transition engine to distinguish transient store
// failures from permanent ones.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential-backoff retry behavior.
//
// Example usage:
//
//	policy := DefaultRetryPolicy()
//	err := WithRetry(ctx, policy, func() error {
//	    return repo.RemoveByUserID(ctx, userID)
//	})
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// Jitter adds up to 10% random jitter to each delay.
	Jitter bool

	// ErrorChecker decides which errors are retryable. If nil, all
	// non-nil errors are treated as retryable.
	ErrorChecker RetryableErrorChecker

	// Logger receives retry events. Defaults to slog.Default().
	Logger *slog.Logger
}

// RetryableErrorChecker decides whether an error should trigger a retry.
type RetryableErrorChecker interface {
	IsRetryable(err error) bool
}

// DefaultRetryPolicy returns a sensible default: 3 retries, 100ms base
// delay, 5s cap, 2x backoff, jitter on.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithRetry executes operation according to policy, retrying transient
// failures with exponential backoff. Context cancellation during a
// retry delay returns ctx.Err() immediately.
func WithRetry(ctx context.Context, policy *RetryPolicy, operation func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	delay := policy.BaseDelay

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, policy.ErrorChecker) {
			logger.Debug("error is non-retryable, stopping retry loop", "error", err, "attempt", attempt+1)
			return lastErr
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries",
				"max_retries", policy.MaxRetries, "total_attempts", attempt+1, "error", lastErr)
			break
		}

		logger.Warn("operation failed, retrying",
			"attempt", attempt+1, "max_retries", policy.MaxRetries, "delay", delay, "error", err)

		if !waitWithContext(ctx, delay) {
			logger.Debug("context cancelled during retry delay", "attempt", attempt+1)
			return ctx.Err()
		}

		delay = calculateNextDelay(delay, policy)
	}

	return fmt.Errorf("operation failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

// WithRetryFunc is like WithRetry for operations that return a value.
func WithRetryFunc[T any](ctx context.Context, policy *RetryPolicy, operation func() (T, error)) (T, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastResult T
	var lastErr error
	delay := policy.BaseDelay

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			return result, nil
		}
		lastResult = result
		lastErr = err

		if !shouldRetry(err, policy.ErrorChecker) {
			logger.Debug("error is non-retryable, stopping retry loop", "error", err, "attempt", attempt+1)
			return lastResult, lastErr
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries",
				"max_retries", policy.MaxRetries, "total_attempts", attempt+1, "error", lastErr)
			break
		}

		logger.Warn("operation failed, retrying",
			"attempt", attempt+1, "max_retries", policy.MaxRetries, "delay", delay, "error", err)

		if !waitWithContext(ctx, delay) {
			logger.Debug("context cancelled during retry delay", "attempt", attempt+1)
			var zero T
			return zero, ctx.Err()
		}

		delay = calculateNextDelay(delay, policy)
	}

	return lastResult, fmt.Errorf("operation failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

func shouldRetry(err error, checker RetryableErrorChecker) bool {
	if err == nil {
		return false
	}
	if checker != nil {
		return checker.IsRetryable(err)
	}
	return true
}

func waitWithContext(ctx context.Context, delay time.Duration) bool {
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func calculateNextDelay(currentDelay time.Duration, policy *RetryPolicy) time.Duration {
	nextDelay := time.Duration(float64(currentDelay) * policy.Multiplier)
	if nextDelay > policy.MaxDelay {
		nextDelay = policy.MaxDelay
	}
	if policy.Jitter {
		jitterAmount := time.Duration(float64(nextDelay) * 0.1 * rand.Float64())
		nextDelay += jitterAmount
	}
	return nextDelay
}
