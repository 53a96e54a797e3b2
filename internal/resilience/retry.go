// Package resilience wraps external calls (embedding, generator, reranker,
// reformulator, index I/O) with retry, circuit-breaking and fallback.
// No circuit-breaker library is used anywhere in the retrieval stack
// this module is patterned on; both wrappers here generalize the retry idiom
// already present in the embedding client (exponential backoff capped,
// context-aware sleep) into reusable decorators around func(ctx) (T, error).
package resilience

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/anchoredrag/core/internal/logger"
)

// RetryConfig controls Retry's backoff policy.
type RetryConfig struct {
	MaxAttempts int           // total attempts including the first, default 3
	BaseDelay   time.Duration // exponential backoff base, default 2s
	MaxDelay    time.Duration // backoff cap, default 10s
}

// DefaultRetryConfig matches : up to 3 attempts, exponential base 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
}

// IsRetryable reports whether err should be retried: AppErrors consult their
// code's Retryable(); unrecognized errors are retried by default since most
// callers wrap transient network failures without an AppError.
func IsRetryable(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code.Retryable()
	}
	return true
}

// Retry calls fn up to cfg.MaxAttempts times, sleeping an exponentially
// growing backoff between attempts, stopping early on a non-retryable error
// or context cancellation.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay * time.Duration(uint(1)<<uint(attempt-1))
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			logger.GetLogger(ctx).Infof("resilience: retrying (%d/%d), waiting %v", attempt, cfg.MaxAttempts-1, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}
