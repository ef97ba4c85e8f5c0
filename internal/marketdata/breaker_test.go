package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, reset)
	cb.now = clk.now
	return cb, clk
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(2, time.Minute)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}
	if cb.CurrentState() != StateOpen {
		t.Fatal("expected Open")
	}

	clk.advance(61 * time.Second)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed after successful probe, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	cb, clk := newTestBreaker(2, time.Minute)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errFail })
	}

	clk.advance(61 * time.Second)
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after failed probe, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	errFail := errors.New("fail")

	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return nil })

	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed (counter should have reset), got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	var transitions []BreakerState
	cb, clk := newTestBreaker(1, time.Minute)
	cb.OnStateChange = func(from, to BreakerState) {
		transitions = append(transitions, to)
	}

	cb.Execute(func() error { return errors.New("fail") })
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("expected [Open], got %v", transitions)
	}

	clk.advance(2 * time.Minute)
	cb.Execute(func() error { return nil })

	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[1] != StateHalfOpen || transitions[2] != StateClosed {
		t.Errorf("expected [Open, HalfOpen, Closed], got %v", transitions)
	}
}

func TestWithBreaker_OpenBreakerFallsBack(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	primary := &fakeProvider{name: "alpaca", err: errors.New("503")}
	secondary := &fakeProvider{name: "yahoo", bars: bars(5)}
	src := newChain(t, WithBreaker(primary, cb), secondary, nil, quietOptions())

	for i := 0; i < 3; i++ {
		series, err := src.Fetch(context.Background(), "ACME")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if series.Source() != "yahoo" {
			t.Fatalf("fetch %d: source %s", i, series.Source())
		}
	}
	if n := primary.calls.Load(); n != 1 {
		t.Errorf("primary called %d times, want 1 (breaker open after first failure)", n)
	}
}

func TestWithBreaker_EmptyIsNotFailure(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	p := WithBreaker(&fakeProvider{name: "alpaca"}, cb)
	if _, err := p.Bars(context.Background(), "ACME", 10); err != nil {
		t.Fatal(err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("empty result tripped the breaker: %v", cb.CurrentState())
	}
	if p.Name() != "alpaca" {
		t.Errorf("name = %s", p.Name())
	}
}
