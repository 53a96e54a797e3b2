package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAfterMajorityFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		WindowSize: 10, MinCalls: 4, FailureThreshold: 0.5, OpenDuration: 50 * time.Millisecond,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := cb.Call(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	// Only 3 outcomes recorded, below MinCalls=4, so the fourth call still
	// runs; recording it makes 3 failures out of 4 calls, which trips open.
	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	// These calls are rejected while the breaker stays open.
	for i := 0; i < 4; i++ {
		_ = cb.Call(context.Background(), func(ctx context.Context) error { return boom })
	}

	err = cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenProbeRecoversOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		WindowSize: 4, MinCalls: 2, FailureThreshold: 0.5, OpenDuration: 10 * time.Millisecond,
	})
	boom := errors.New("boom")

	_ = cb.Call(context.Background(), func(ctx context.Context) error { return boom })
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return boom })
	require.Equal(t, stateOpen, cb.state)

	time.Sleep(15 * time.Millisecond)

	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, stateClosed, cb.state)
}
