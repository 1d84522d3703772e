// Package resilience provides circuit breaker and transcription failover
// primitives.
//
// The central type is [CircuitBreaker], a classic three-state breaker
// (closed → open → half-open) that stops a failing speech backend from
// dragging every assessment down with it. [FallbackGroup] composes multiple
// instances of any provider type with per-entry breakers so a tripped primary
// is bypassed in favour of healthy fallbacks, and [Transcriber] packages that
// behaviour behind the [stt.Provider] interface.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Do] when the breaker is open
// and the cool-down period has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state — all calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped after too many consecutive
	// failures. Calls fail fast with [ErrCircuitOpen] until the cool-down
	// elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the cool-down. A small
	// number of calls are let through; if they succeed the breaker closes,
	// otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
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

// BreakerConfig holds tuning knobs for a [CircuitBreaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// TripAfter is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	TripAfter int

	// CoolDown is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	CoolDown time.Duration

	// ProbeBudget is the maximum number of probe calls allowed in the
	// half-open state before the breaker decides to close or re-open.
	// Default: 3.
	ProbeBudget int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type CircuitBreaker struct {
	name        string
	tripAfter   int
	coolDown    time.Duration
	probeBudget int

	mu          sync.Mutex
	state       State
	failStreak  int
	lastFailure time.Time
	probeCalls  int
	probeFails  int
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied configuration.
// Zero-value config fields fall back to defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 3
	}
	return &CircuitBreaker{
		name:        cfg.Name,
		tripAfter:   cfg.TripAfter,
		coolDown:    cfg.CoolDown,
		probeBudget: cfg.ProbeBudget,
		state:       StateClosed,
	}
}

// Do runs fn if the breaker allows it. In the open state it returns
// [ErrCircuitOpen] without calling fn. In the half-open state a limited number
// of probes are permitted.
func (cb *CircuitBreaker) Do(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.coolDown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probeCalls = 0
		cb.probeFails = 0
		slog.Info("circuit breaker transitioning to half-open", "name", cb.name)

	case StateHalfOpen:
		if cb.probeCalls >= cb.probeBudget {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	probing := cb.state == StateHalfOpen
	if probing {
		cb.probeCalls++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(probing)
	} else {
		cb.onSuccess(probing)
	}
	return err
}

// onFailure handles failure accounting. Must be called with cb.mu held.
func (cb *CircuitBreaker) onFailure(probing bool) {
	cb.lastFailure = time.Now()

	if probing {
		cb.probeFails++
		// Any probe failure immediately re-opens.
		cb.state = StateOpen
		cb.failStreak = cb.tripAfter
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.name)
		return
	}

	cb.failStreak++
	if cb.failStreak >= cb.tripAfter {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.failStreak)
	}
}

// onSuccess handles success accounting. Must be called with cb.mu held.
func (cb *CircuitBreaker) onSuccess(probing bool) {
	if probing {
		if cb.probeCalls-cb.probeFails >= cb.probeBudget {
			cb.state = StateClosed
			cb.failStreak = 0
			cb.probeCalls = 0
			cb.probeFails = 0
			slog.Info("circuit breaker closed after successful probes",
				"name", cb.name)
		}
		return
	}

	cb.failStreak = 0
}

// State returns the current [State] of the breaker. If the breaker is open and
// the cool-down has elapsed, the returned state is [StateHalfOpen]; the actual
// transition happens on the next [CircuitBreaker.Do] call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.coolDown {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed], clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failStreak = 0
	cb.probeCalls = 0
	cb.probeFails = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
