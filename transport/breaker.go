// File: transport/breaker.go
// Author: momentics <momentics@gmail.com>
//
// Circuit breaker tracking consecutive peer timeouts.

package transport

import (
	"sync"
	"time"

	"github.com/momentics/warplink/api"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state where calls pass through.
	CircuitClosed CircuitState = iota

	// CircuitOpen rejects calls immediately.
	CircuitOpen

	// CircuitHalfOpen lets one probe call through after the reset timeout.
	CircuitHalfOpen
)

// String returns a human-readable circuit state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive timeouts before opening
	// the circuit. Zero disables the breaker.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a probe. Default: 5s
	ResetTimeout time.Duration
}

// DefaultBreakerConfig returns a BreakerConfig with sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     5 * time.Second,
	}
}

// CircuitBreaker fast-fails a link whose peer keeps timing out.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg BreakerConfig
	now func() time.Time

	state            CircuitState
	consecutiveFails int
	lastFailTime     time.Time
	probing          bool
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 5 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// State returns the current state, moving Open to HalfOpen once the reset
// timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Must be called with mu held.
func (cb *CircuitBreaker) stateLocked() CircuitState {
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailTime) >= cb.cfg.ResetTimeout {
		cb.state = CircuitHalfOpen
		cb.probing = false
	}
	return cb.state
}

// Allow reports whether a call may proceed. In half-open state only one
// probe is admitted until its outcome is recorded.
func (cb *CircuitBreaker) Allow() error {
	if cb.cfg.FailureThreshold <= 0 {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.stateLocked() {
	case CircuitOpen:
		return api.ErrLinkFaulted
	case CircuitHalfOpen:
		if cb.probing {
			return api.ErrLinkFaulted
		}
		cb.probing = true
	}
	return nil
}

// Record feeds the outcome of an admitted call. Only peer timeouts count as
// failures; any exchange the peer completed proves it alive.
func (cb *CircuitBreaker) Record(timedOut bool) {
	if cb.cfg.FailureThreshold <= 0 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !timedOut {
		cb.consecutiveFails = 0
		cb.state = CircuitClosed
		cb.probing = false
		return
	}
	cb.consecutiveFails++
	cb.lastFailTime = cb.now()
	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.cfg.FailureThreshold {
		cb.state = CircuitOpen
		cb.probing = false
	}
}

// Reset manually closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.consecutiveFails = 0
	cb.probing = false
}

// Skip releases an admitted call that never reached the peer.
func (cb *CircuitBreaker) Skip() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}
