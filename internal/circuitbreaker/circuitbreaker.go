package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the guarded function while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

// State is the circuit breaker state (Closed, Open, HalfOpen).
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
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters. Zero values take the defaults noted.
type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit (5)
	SuccessThreshold int           // half-open successes that close it again (2)
	OpenTimeout      time.Duration // time open before a probe is let through (30s)
	// IsFailure decides which errors count against the backend. Default: any error
	// except context cancellation and deadline.
	IsFailure     func(error) bool
	OnStateChange func(from, to State)
	now           func() time.Time
}

// CircuitBreaker fails fast after repeated backend failures and lets a probe through
// once OpenTimeout has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	cfg          Config
	state        State
	failures     int
	successes    int
	openedAt     time.Time
	probeRunning bool
}

// New creates a CircuitBreaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn when the circuit allows it and records the outcome. While open it
// returns ErrOpen; in half-open only one probe runs at a time.
func (cb *CircuitBreaker) Do(fn func() error) error {
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
		if cb.cfg.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return ErrOpen
		}
		cb.transition(StateHalfOpen)
		cb.probeRunning = true
	case StateHalfOpen:
		if cb.probeRunning {
			return ErrOpen
		}
		cb.probeRunning = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.state == StateHalfOpen
	if halfOpen {
		cb.probeRunning = false
	}

	if err != nil && !cb.cfg.IsFailure(err) {
		return
	}
	if err != nil {
		cb.failures++
		if halfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.openedAt = cb.cfg.now()
			cb.transition(StateOpen)
		}
		return
	}

	cb.failures = 0
	if halfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
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
	cb.failures = 0
	cb.successes = 0
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
