package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d error = %v, want errBoom", i, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("State() = %s, want open", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !IsRejected(err) {
		t.Errorf("error = %v, want rejection", err)
	}
	if called {
		t.Error("fn ran while circuit was open")
	}
}

func TestCircuitBreaker_SuccessKeepsClosed(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.ConsecutiveFailures = 2
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })

	if cb.IsOpen() {
		t.Errorf("State() = %s, want closed", cb.State())
	}
	if got := cb.Stats().ConsecutiveFailures; got != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", got)
	}
}

func TestCall_ReturnsResult(t *testing.T) {
	cb := NewCircuitBreaker(nil)

	got, err := Call(cb, func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("Call() = %q, %v", got, err)
	}

	_, err = Call(cb, func() (*int, error) { return nil, errBoom })
	if !errors.Is(err, errBoom) {
		t.Errorf("Call() error = %v, want errBoom", err)
	}
}
