package broker

import (
	"sync"
	"time"
)

// CircuitState is the circuit breaker's state machine position.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// circuitBreaker is a timestamped-failure-deque breaker, isolated per
// (workspace_id, tool_name): a burst of failures inside the sliding window
// trips it, a cooldown elapses before a bounded number of half-open probe
// calls are allowed through, and a success in half-open closes it again.
type circuitBreaker struct {
	failureThreshold int
	window           time.Duration
	cooldown         time.Duration
	halfOpenMaxCalls int

	mu            sync.Mutex
	state         CircuitState
	failures      []time.Time
	openedAt      time.Time
	halfOpenCalls int
}

func newCircuitBreaker(failureThreshold int, window, cooldown time.Duration, halfOpenMaxCalls int) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		halfOpenMaxCalls: halfOpenMaxCalls,
		state:            CircuitClosed,
	}
}

// Allow reports whether a call may proceed, transitioning OPEN -> HALF_OPEN
// once the cooldown has elapsed.
func (c *circuitBreaker) Allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(c.openedAt) >= c.cooldown {
			c.state = CircuitHalfOpen
			c.halfOpenCalls = 0
			return c.tryHalfOpenLocked()
		}
		return false
	case CircuitHalfOpen:
		return c.tryHalfOpenLocked()
	default:
		return true
	}
}

func (c *circuitBreaker) tryHalfOpenLocked() bool {
	if c.halfOpenCalls >= c.halfOpenMaxCalls {
		return false
	}
	c.halfOpenCalls++
	return true
}

// RecordSuccess closes the circuit (from any state) and clears failure history.
func (c *circuitBreaker) RecordSuccess(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CircuitClosed
	c.failures = nil
	c.halfOpenCalls = 0
}

// RecordFailure appends a failure timestamp, pruning the sliding window, and
// trips the breaker if the threshold is reached within window. A failure
// while HALF_OPEN re-opens the circuit immediately.
func (c *circuitBreaker) RecordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == CircuitHalfOpen {
		c.trip(now)
		return
	}

	cutoff := now.Add(-c.window)
	kept := c.failures[:0]
	for _, t := range c.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	c.failures = kept

	if len(c.failures) >= c.failureThreshold {
		c.trip(now)
	}
}

func (c *circuitBreaker) trip(now time.Time) {
	c.state = CircuitOpen
	c.openedAt = now
	c.failures = nil
	c.halfOpenCalls = 0
}

// ForceHalfOpen is the admin override allowing an operator to probe a
// tripped circuit before its cooldown naturally elapses.
func (c *circuitBreaker) ForceHalfOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CircuitOpen {
		c.state = CircuitHalfOpen
		c.halfOpenCalls = 0
	}
}

func (c *circuitBreaker) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// circuitRegistry holds one circuitBreaker per (workspace_id, tool_name).
type circuitRegistry struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker
	threshold int
	window    time.Duration
	cooldown  time.Duration
	halfOpenMaxCalls int
}

func newCircuitRegistry(threshold int, window, cooldown time.Duration, halfOpenMaxCalls int) *circuitRegistry {
	return &circuitRegistry{
		breakers:         make(map[string]*circuitBreaker),
		threshold:        threshold,
		window:           window,
		cooldown:         cooldown,
		halfOpenMaxCalls: halfOpenMaxCalls,
	}
}

func (r *circuitRegistry) get(workspaceID, tool string) *circuitBreaker {
	key := workspaceID + ":" + tool
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[key]
	if !ok {
		cb = newCircuitBreaker(r.threshold, r.window, r.cooldown, r.halfOpenMaxCalls)
		r.breakers[key] = cb
	}
	return cb
}

// ForceHalfOpen is the admin override for a specific (workspace, tool) pair.
func (r *circuitRegistry) ForceHalfOpen(workspaceID, tool string) {
	r.get(workspaceID, tool).ForceHalfOpen()
}
