// Package circuitbreaker implements the per-agent-instance circuit breaker
// of spec §3/§4.4, adapted from the teacher's internal/infra/circuit.go
// state machine (closed/open/half-open) with the defaults spec.md names:
// FAILURE_THRESHOLD=5, RESET_TIMEOUT=60s.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the circuit breaker's current state.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half-open"
)

// Config configures a Breaker. Zero values take spec.md's defaults.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// DefaultConfig returns spec.md's stated defaults (§3): 5 failures, 60s
// reset timeout.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, ResetTimeout: 60 * time.Second}
}

// Breaker is a per-agent-instance circuit breaker; spec §5 requires it be
// accessed only by its owning agent instance, so no method here takes a
// context or is expected to be shared across agents.
type Breaker struct {
	mu              sync.Mutex
	cfg             Config
	state           State
	failures        int
	lastFailureTime time.Time
	openedAt        time.Time
}

// New creates a Breaker, filling zero-valued Config fields with defaults.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	return &Breaker{cfg: cfg, state: Closed}
}

// CanExecute reports whether the breaker currently permits a call. Per
// spec §8 testable property 12: after failureThreshold consecutive
// failures it returns false; after resetTimeoutMs of wall-clock with no
// new failure it returns true again (transitioning to half-open).
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) >= b.cfg.ResetTimeout {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordFailure increments the failure counter and opens the breaker once
// the threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	if b.state == HalfOpen {
		b.state = Open
		b.openedAt = time.Now()
		return
	}
	if b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openedAt = time.Now()
	}
}

// RecordSuccess resets the failure counter and closes the breaker if it
// was half-open.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == HalfOpen {
		b.state = Closed
	}
}

// Stats is a snapshot of the breaker's fields for introspection
// (spec §3's {failures, lastFailureTime, isOpen}) plus its current State,
// as returned by Breaker.Stats.
type Stats struct {
	State           State
	Failures        int
	LastFailureTime time.Time
	IsOpen          bool
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		State:           b.state,
		Failures:        b.failures,
		LastFailureTime: b.lastFailureTime,
		IsOpen:          b.state == Open,
	}
}

// Reset forces the breaker back to closed, clearing counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
}

// Registry tracks named breakers, one per agent type, so the orchestrator
// can log/introspect circuit state without holding a reference to every
// live agent instance (SPEC_FULL.md §12 supplement, grounded on the
// teacher's CircuitBreakerRegistry).
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
}

// NewRegistry creates a Registry using cfg as the default for breakers
// created on first Get.
func NewRegistry(cfg Config) *Registry {
	return &Registry{breakers: make(map[string]*Breaker), defaults: cfg}
}

// Get returns the named breaker, creating it with the registry's default
// config on first access.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b = New(r.defaults)
	r.breakers[name] = b
	return b
}

// OpenBreakers returns the names of all currently-open breakers.
func (r *Registry) OpenBreakers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var open []string
	for name, b := range r.breakers {
		if b.Stats().IsOpen {
			open = append(open, name)
		}
	}
	return open
}
