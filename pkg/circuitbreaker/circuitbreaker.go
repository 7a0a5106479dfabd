// Package circuitbreaker stops calling a failing dependency for a while and
// lets a single probe through before trusting it again.
//
// The roster cache sits behind one so a Redis outage degrades to direct store
// reads instead of adding a timeout to every request.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

var (
	// ErrCircuitOpen is returned without calling fn while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrProbeInFlight is returned while a half-open probe is still running.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

type settings struct {
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	isFailure        func(error) bool
	onStateChange    func(name string, from, to State)
	now              func() time.Time
}

// Option configures a CircuitBreaker.
type Option func(*settings)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successful probes close it.
func WithSuccessThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.successThreshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before probing.
func WithCooldown(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithIsFailure decides which errors count against the dependency. Errors it
// rejects, such as a cache miss, are returned to the caller but count as
// successes.
func WithIsFailure(fn func(error) bool) Option {
	return func(s *settings) { s.isFailure = fn }
}

// WithOnStateChange registers a callback for transitions. It runs under the
// breaker's lock and must not call back into the breaker.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) { s.onStateChange = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	name string
	cfg  settings

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New creates a closed breaker. Defaults: 5 failures to open, 1 success to
// close, 30s cooldown.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := settings{
		failureThreshold: 5,
		successThreshold: 1,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{name: name, cfg: cfg}
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute calls fn unless the breaker is open. fn's error is returned as is.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.cfg.now().Sub(cb.openedAt) < cb.cfg.cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrProbeInFlight
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	failed := err != nil
	if failed && cb.cfg.isFailure != nil {
		failed = cb.cfg.isFailure(err)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false

	if failed {
		cb.successes = 0
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.failureThreshold {
			cb.openedAt = cb.cfg.now()
			cb.transition(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.successThreshold {
			cb.transition(StateClosed)
		}
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures, cb.successes = 0, 0
	if cb.cfg.onStateChange != nil {
		cb.cfg.onStateChange(cb.name, from, to)
	}
}

// State returns the current state. An open breaker whose cooldown has passed
// still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen reports whether calls are currently refused.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// CacheBreaker returns the breaker used in front of the roster cache. It opens
// fast and probes again soon, since callers always have the store to fall
// back to. Extra options are applied after the preset.
func CacheBreaker(onStateChange func(name string, from, to State), opts ...Option) *CircuitBreaker {
	base := []Option{
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCooldown(15 * time.Second),
		WithOnStateChange(onStateChange),
	}
	return New("roster-cache", append(base, opts...)...)
}
