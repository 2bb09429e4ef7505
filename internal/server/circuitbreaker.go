// circuitbreaker.go - Circuit breaker around the object mirror.
package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed: calls flow normally
	StateClosed CircuitState = iota
	// StateOpen: calls fail fast
	StateOpen
	// StateHalfOpen: one trial call decides whether to close again
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker opens after maxFailures consecutive failures and lets a
// single trial call through once cooldown has passed.
type CircuitBreaker struct {
	mu sync.Mutex

	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
	log         *zap.Logger

	state    CircuitState
	failures int
	openedAt time.Time
	trial    bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration, log *zap.Logger) *CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
		log:         log,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.trial = true
	case StateHalfOpen:
		if cb.trial {
			return ErrCircuitOpen
		}
		cb.trial = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trial = false
	if err == nil {
		cb.failures = 0
		if cb.state != StateClosed {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.openedAt = cb.now()
		if cb.state != StateOpen {
			cb.setState(StateOpen)
		}
	}
}

// setState must be called with cb.mu held.
func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.log.Info("circuit breaker state change",
		zap.Stringer("from", cb.state), zap.Stringer("to", s), zap.Int("failures", cb.failures))
	cb.state = s
}

// breakerMirror guards an ObjectMirror with a CircuitBreaker.
type breakerMirror struct {
	next ObjectMirror
	cb   *CircuitBreaker
}

// WithCircuitBreaker wraps m so that calls fail fast while it is down.
func WithCircuitBreaker(m ObjectMirror, cb *CircuitBreaker) ObjectMirror {
	return &breakerMirror{next: m, cb: cb}
}

func (b *breakerMirror) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	return b.cb.Execute(func() error { return b.next.Put(ctx, name, r, size) })
}

func (b *breakerMirror) Remove(ctx context.Context, name string) error {
	return b.cb.Execute(func() error { return b.next.Remove(ctx, name) })
}

// Ping is not guarded by the breaker.
func (b *breakerMirror) Ping(ctx context.Context) error {
	p, ok := b.next.(pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
