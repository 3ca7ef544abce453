// Package resilience provides fault tolerance patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"triage_server/pkg/logger"
)

// Errors returned by the circuit breaker.
var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	Name                string        // Name for logging
	ConsecutiveFailures uint32        // Consecutive failures before opening (default: 5)
	FailureRatio        float64       // Failure ratio that opens the circuit (default: 0.6)
	MinRequests         uint32        // Requests needed before the ratio applies (default: 10)
	Interval            time.Duration // Counter reset interval while closed (default: 60s)
	Timeout             time.Duration // Time to wait before half-open (default: 30s)
	MaxHalfOpenRequests uint32        // Requests allowed while half-open (default: 3)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		FailureRatio:        0.6,
		MinRequests:         10,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 3,
	}
}

// CircuitBreaker wraps gobreaker with the project's logging.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a new circuit breaker with the given config.
func NewCircuitBreaker(cfg *CircuitBreakerConfig) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultCircuitBreakerConfig("default")
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests < cfg.MinRequests || cfg.FailureRatio <= 0 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the circuit breaker name.
func (c *CircuitBreaker) Name() string {
	return c.cb.Name()
}

// State returns the current state: closed, half-open or open.
func (c *CircuitBreaker) State() string {
	return c.cb.State().String()
}

// IsOpen reports whether calls are currently rejected.
func (c *CircuitBreaker) IsOpen() bool {
	return c.cb.State() == gobreaker.StateOpen
}

// Execute runs fn with circuit breaker protection.
func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Call runs fn with circuit breaker protection and returns its result.
func Call[T any](c *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	v, err := c.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	result, ok := v.(T)
	if !ok {
		return zero, errors.New("circuit breaker: unexpected result type")
	}
	return result, nil
}

// IsRejected reports whether err came from the breaker rather than the call.
func IsRejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

// CircuitBreakerStats is a snapshot of breaker counters.
type CircuitBreakerStats struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// Stats returns current statistics.
func (c *CircuitBreaker) Stats() CircuitBreakerStats {
	counts := c.cb.Counts()
	return CircuitBreakerStats{
		Name:                 c.cb.Name(),
		State:                c.State(),
		Requests:             counts.Requests,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}
