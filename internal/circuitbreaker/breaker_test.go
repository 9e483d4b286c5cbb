package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(3, time.Minute, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if err := cb.Call(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %s, want open", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("function must not run while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	cb.Call(fail)
	cb.Call(succeed)
	cb.Call(fail)

	if state, failures := cb.Stats(); state != StateClosed || failures != 1 {
		t.Errorf("Stats() = %s, %d; want closed, 1", state, failures)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name      string
		probe     func() error
		wantState State
	}{
		{name: "probe succeeds", probe: succeed, wantState: StateClosed},
		{name: "probe fails", probe: fail, wantState: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(0, 0)}
			cb := NewCircuitBreaker(1, 30*time.Second, WithClock(clock.Now))

			cb.Call(fail)
			clock.Advance(31 * time.Second)

			cb.Call(tt.probe)
			if cb.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", cb.State(), tt.wantState)
			}
		})
	}
}

func TestCircuitBreaker_SingleProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(1, time.Second, WithClock(clock.Now))
	cb.Call(fail)
	clock.Advance(2 * time.Second)

	err := cb.Call(func() error {
		// A second caller arriving during the probe is rejected.
		if inner := cb.Call(succeed); !errors.Is(inner, ErrCircuitOpen) {
			t.Errorf("concurrent call error = %v, want ErrCircuitOpen", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %s, want closed", cb.State())
	}
}

func TestCircuitBreaker_IgnoresCallerCancellation(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	cb.Call(func() error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Errorf("State() = %s, want closed", cb.State())
	}

	cb.Call(func() error { return context.DeadlineExceeded })
	if cb.State() != StateOpen {
		t.Errorf("timeouts should count as failures, state = %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)
	cb.Call(fail)
	cb.Reset()

	if state, failures := cb.Stats(); state != StateClosed || failures != 0 {
		t.Errorf("Stats() = %s, %d after reset", state, failures)
	}
}
