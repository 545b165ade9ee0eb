// Package breaker implements a per-provider circuit breaker guarding every
// external call the routers make. State is tracked per (provider, purpose)
// pair so that a provider failing on one query shape keeps working on another.
package breaker

import (
	"sync"
	"time"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	// DefaultThreshold is the consecutive-failure count that opens the circuit.
	DefaultThreshold = 3
	// DefaultCooldown is how long an open circuit rejects calls before a trial.
	DefaultCooldown = 60 * time.Second
)

// Breaker is a tri-state gate for one (provider, purpose) pair.
// Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state     State
	failures  int
	openedAt  time.Time
	lastError string
	// trialing is set while a half-open trial call is outstanding so only
	// one caller gets through.
	trialing bool
}

type Option func(*Breaker)

func WithThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = n }
}

func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

func New(opts ...Option) *Breaker {
	b := &Breaker{
		threshold: DefaultThreshold,
		cooldown:  DefaultCooldown,
		now:       time.Now,
		state:     StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may be attempted right now. After the cooldown
// elapses on an open circuit it transitions to half-open and admits exactly
// one trial call; further callers are rejected until that trial is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.trialing = true
		return true
	case StateHalfOpen:
		if b.trialing {
			return false
		}
		b.trialing = true
		return true
	}
	return false
}

// Record reports the outcome of a call previously admitted by Allow.
func (b *Breaker) Record(success bool, errSummary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialing = false

	if success {
		b.state = StateClosed
		b.failures = 0
		b.lastError = ""
		return
	}

	b.lastError = errSummary
	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = b.now()
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// Status is a point-in-time snapshot for operational visibility.
type Status struct {
	State         State      `json:"state"`
	Failures      int        `json:"failures"`
	LastError     string     `json:"lastError,omitempty"`
	CooldownUntil *time.Time `json:"cooldownUntil,omitempty"`
}

func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{
		State:     b.state,
		Failures:  b.failures,
		LastError: b.lastError,
	}
	if b.state == StateOpen {
		until := b.openedAt.Add(b.cooldown)
		s.CooldownUntil = &until
	}
	return s
}
