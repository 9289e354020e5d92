// Package circuitbreaker protects calls to a remote search service with a
// circuit breaker and context-aware exponential retry.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe budget is used up
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// State represents the state of a circuit breaker
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config represents the configuration for a circuit breaker
type Config struct {
	Name string
	// MaxRequests is the number of probes allowed while half-open (default: 1)
	MaxRequests int64
	// Interval clears the closed-state counts periodically (default: 60s)
	Interval time.Duration
	// Timeout is how long the circuit stays open before probing (default: 30s)
	Timeout time.Duration
	// MaxFailures consecutive failures open the circuit (default: 5)
	MaxFailures int64
	// SuccessThreshold consecutive probe successes close the circuit (default: 1)
	SuccessThreshold int64
	// IsFailure decides which errors count against the circuit; nil counts all
	IsFailure     func(err error) bool
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a default configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		MaxFailures:      5,
		SuccessThreshold: 1,
	}
}

// Counts represents the statistics of the current generation
type Counts struct {
	Requests             int64 `json:"requests"`
	TotalSuccesses       int64 `json:"totalSuccesses"`
	TotalFailures        int64 `json:"totalFailures"`
	ConsecutiveSuccesses int64 `json:"consecutiveSuccesses"`
	ConsecutiveFailures  int64 `json:"consecutiveFailures"`
}

type CircuitBreaker struct {
	config Config

	mu         sync.Mutex
	state      State
	counts     Counts
	generation uint64
	changedAt  time.Time
	// expiry is the end of the counting interval (closed) or of the open timeout
	expiry time.Time
	now    func() time.Time
}

// New creates a circuit breaker; zero config fields take their defaults
func New(config *Config) *CircuitBreaker {
	def := DefaultConfig("default")
	cfg := def
	if config != nil {
		c := *config
		cfg = &c
		if cfg.Name == "" {
			cfg.Name = def.Name
		}
		if cfg.MaxRequests <= 0 {
			cfg.MaxRequests = def.MaxRequests
		}
		if cfg.Interval <= 0 {
			cfg.Interval = def.Interval
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = def.Timeout
		}
		if cfg.MaxFailures <= 0 {
			cfg.MaxFailures = def.MaxFailures
		}
		if cfg.SuccessThreshold <= 0 {
			cfg.SuccessThreshold = def.SuccessThreshold
		}
	}
	cb := &CircuitBreaker{config: *cfg, now: time.Now}
	cb.changedAt = cb.now()
	cb.expiry = cb.changedAt.Add(cfg.Interval)
	return cb
}

func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// State returns the current state, moving open to half-open once the timeout elapsed
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState(cb.now())
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

func (cb *CircuitBreaker) IsOpen() bool     { return cb.State() == StateOpen }
func (cb *CircuitBreaker) IsClosed() bool   { return cb.State() == StateClosed }
func (cb *CircuitBreaker) IsHalfOpen() bool { return cb.State() == StateHalfOpen }

// Reset closes the circuit and clears its counts
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed, cb.now())
}

// Execute runs fn under circuit breaker protection
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error { return fn() })
}

// ExecuteContext runs fn unless ctx is done or the circuit rejects the call
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.afterRequest(generation, err)
	return err
}

// Stats is a snapshot for health endpoints and logs
type Stats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Generation      uint64    `json:"generation"`
	LastStateChange time.Time `json:"lastStateChange"`
	Counts          Counts    `json:"counts"`
}

func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state := cb.currentState(cb.now())
	return Stats{
		Name:            cb.config.Name,
		State:           state.String(),
		Generation:      cb.generation,
		LastStateChange: cb.changedAt,
		Counts:          cb.counts,
	}
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentState(cb.now())
	switch state {
	case StateOpen:
		return cb.generation, ErrCircuitOpen
	case StateHalfOpen:
		if cb.counts.Requests >= cb.config.MaxRequests {
			return cb.generation, ErrTooManyRequests
		}
	}
	cb.counts.Requests++
	return cb.generation, nil
}

func (cb *CircuitBreaker) afterRequest(generation uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	state := cb.currentState(now)
	// 结果属于已经结束的一代，忽略
	if generation != cb.generation {
		return
	}
	if err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err)) {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0
		switch {
		case state == StateHalfOpen:
			cb.setState(StateOpen, now)
		case state == StateClosed && cb.counts.ConsecutiveFailures >= cb.config.MaxFailures:
			cb.setState(StateOpen, now)
		}
		return
	}
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0
	if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed, now)
	}
}

// currentState must be called with mu held
func (cb *CircuitBreaker) currentState(now time.Time) State {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && now.After(cb.expiry) {
			cb.newGeneration(now)
		}
	case StateOpen:
		if now.After(cb.expiry) {
			cb.setState(StateHalfOpen, now)
		}
	}
	return cb.state
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}
	prev := cb.state
	cb.state = state
	cb.changedAt = now
	cb.newGeneration(now)
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, state)
	}
}

func (cb *CircuitBreaker) newGeneration(now time.Time) {
	cb.generation++
	cb.counts = Counts{}
	switch cb.state {
	case StateClosed:
		cb.expiry = now.Add(cb.config.Interval)
	case StateOpen:
		cb.expiry = now.Add(cb.config.Timeout)
	default:
		cb.expiry = time.Time{}
	}
}
