package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"equity-signalbot/internal/model"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	StateClosed   BreakerState = 0 // Normal operation, calls pass through
	StateOpen     BreakerState = 1 // Tripped, calls rejected immediately
	StateHalfOpen BreakerState = 2 // One probe call allowed through
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a provider that keeps failing.
// After maxFailures consecutive failures, the breaker opens and rejects all
// calls for resetTimeout. After the timeout, it enters half-open state and
// allows one probe call through. If the probe succeeds, the breaker closes;
// if it fails, it reopens.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	now          func() time.Time

	// OnStateChange is called on every transition, with the lock held.
	OnStateChange func(from, to BreakerState)
}

// NewCircuitBreaker creates a circuit breaker.
// maxFailures: consecutive failures before opening (e.g., 3)
// resetTimeout: time to wait before the half-open probe (e.g., 5m)
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen if the breaker is open and the timeout hasn't elapsed.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
			cb.transition(StateHalfOpen)
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the current circuit breaker state.
func (cb *CircuitBreaker) CurrentState() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}

// guarded wraps a Provider with a circuit breaker. Empty results count as
// success; only errors trip the breaker.
type guarded struct {
	Provider
	cb *CircuitBreaker
}

// WithBreaker returns p guarded by cb.
func WithBreaker(p Provider, cb *CircuitBreaker) Provider {
	return &guarded{Provider: p, cb: cb}
}

func (g *guarded) Bars(ctx context.Context, symbol string, lookback int) ([]model.PriceBar, error) {
	var bars []model.PriceBar
	err := g.cb.Execute(func() error {
		var err error
		bars, err = g.Provider.Bars(ctx, symbol, lookback)
		return err
	})
	return bars, err
}
