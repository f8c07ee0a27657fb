package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmiseikis/site-api/pkg/circuitbreaker"
	apperrors "github.com/jmiseikis/site-api/pkg/errors"
	"github.com/jmiseikis/site-api/pkg/logger"
	"go.uber.org/zap"
)

// Policy describes how a failed read is retried. Attempts counts the first call.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter spreads each delay by up to ±25%
	Jitter bool
	// ShouldRetry defaults to IsRetryable
	ShouldRetry func(error) bool
}

// SheetsPolicy is used for the public spreadsheet feed: three attempts, short backoff
func SheetsPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 300 * time.Millisecond,
		MaxDelay:  3 * time.Second,
		Jitter:    true,
	}
}

// Do calls fn up to p.Attempts times. A non-retryable error or a done ctx ends it early.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == attempts {
			break
		}

		delay := p.backoff(attempt)
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	if !shouldRetry(lastErr) {
		return zero, lastErr
	}
	return zero, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

// backoff doubles BaseDelay per attempt, capped at MaxDelay
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		spread := int64(delay) / 4
		//nolint:gosec // G404: math/rand is sufficient for retry jitter
		delay += time.Duration(rand.Int63n(2*spread+1) - spread)
	}
	return delay
}

// IsRetryable is false for errors a second attempt cannot fix
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, apperrors.ErrNotConfigured) {
		return false
	}
	return !circuitbreaker.IsOpen(err)
}
