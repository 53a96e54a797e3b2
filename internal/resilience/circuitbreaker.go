package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by CircuitBreaker.Call when the breaker is open
// and the call was rejected without invoking fn.
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreakerConfig controls when the breaker trips and how long it stays
// open before allowing a half-open probe.
type CircuitBreakerConfig struct {
	WindowSize       int           // rolling window of call outcomes, default 10
	MinCalls         int           // minimum calls in window before tripping, default 5
	FailureThreshold float64       // fraction of failures that trips the breaker, default 0.5
	OpenDuration     time.Duration // how long the breaker stays open, default 30s
}

// DefaultCircuitBreakerConfig is the reference configuration for ordinary upstreams.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{WindowSize: 10, MinCalls: 5, FailureThreshold: 0.5, OpenDuration: 30 * time.Second}
}

// PaidLLMCircuitBreakerConfig matches the longer 60s open window for
// paid LLM upstreams.
func PaidLLMCircuitBreakerConfig() CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	cfg.OpenDuration = 60 * time.Second
	return cfg
}

// CircuitBreaker tracks a rolling window of call outcomes for one external
// collaborator and rejects calls while open. It holds no global/package-level
// state: each wrapped client owns its own instance.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu          sync.Mutex
	state       breakerState
	outcomes    []bool // true = success, ring buffer up to WindowSize
	openedAt    time.Time
	halfOpenBusy bool
}

// NewCircuitBreaker constructs a breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.WindowSize <= 0 {
		cfg = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{cfg: cfg, state: stateClosed}
}

// allow reports whether a call may proceed, transitioning Open->HalfOpen
// once OpenDuration has elapsed. It reserves the single half-open probe slot.
func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(b.openedAt) < b.cfg.OpenDuration {
			return false
		}
		b.state = stateHalfOpen
		b.halfOpenBusy = true
		return true
	case stateHalfOpen:
		if b.halfOpenBusy {
			return false
		}
		b.halfOpenBusy = true
		return true
	default:
		return true
	}
}

func (b *CircuitBreaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.halfOpenBusy = false
		if success {
			b.state = stateClosed
			b.outcomes = nil
		} else {
			b.state = stateOpen
			b.openedAt = time.Now()
			b.outcomes = nil
		}
		return
	}

	b.outcomes = append(b.outcomes, success)
	if len(b.outcomes) > b.cfg.WindowSize {
		b.outcomes = b.outcomes[len(b.outcomes)-b.cfg.WindowSize:]
	}
	if len(b.outcomes) < b.cfg.MinCalls {
		return
	}

	failures := 0
	for _, ok := range b.outcomes {
		if !ok {
			failures++
		}
	}
	if float64(failures)/float64(len(b.outcomes)) >= b.cfg.FailureThreshold {
		b.state = stateOpen
		b.openedAt = time.Now()
		b.outcomes = nil
	}
}

// Call runs fn if the breaker permits it, recording the outcome. It returns
// ErrCircuitOpen without invoking fn when the breaker is tripped.
func (b *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	b.record(err == nil)
	return err
}
