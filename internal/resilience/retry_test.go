package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/anchoredrag/core/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	result, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, apperrors.NewUpstreamUnavailableError("boom")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, apperrors.NewValidationError("bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("generic transient failure")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second}
	_, err := Retry(ctx, cfg, func(ctx context.Context) (int, error) {
		return 0, apperrors.NewUpstreamUnavailableError("boom")
	})

	require.Error(t, err)
}
