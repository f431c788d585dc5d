// Package circuit provides a consecutive-failure circuit breaker.
//
// The breaker opens after N consecutive failures and closes again after M
// consecutive successes. While open, callers use their fallback path; Allow
// lets a single probe through once per cooldown so the primary can recover.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange reports a transition caused by a Record call.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	clock            func() time.Time

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	lastProbe    time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets consecutive failures needed to open.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets consecutive successes needed to close.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets the minimum interval between probes while open.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(b *Breaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New creates a closed breaker. Defaults: 5 failures to open, 2 successes to
// close, 30s between probes.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         30 * time.Second,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether the primary path should be attempted. Always true when
// closed; when open, true at most once per cooldown.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	now := b.clock()
	if now.Sub(b.lastProbe) >= b.cooldown {
		b.lastProbe = now
		return true
	}
	return false
}

// RecordFailure notes a primary failure. It returns whether callers should use
// the fallback path and whether this call opened the circuit.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.successCount = 0
	if b.state == StateOpen {
		b.lastProbe = b.clock()
		return true, change
	}
	if b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		b.lastProbe = b.clock()
		change.Opened = true
		return true, change
	}
	return false, change
}

// RecordSuccess notes a primary success. It returns whether the primary path is
// now in use and whether this call closed the circuit.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		b.successCount++
		if b.successCount < b.successThreshold {
			return false, change
		}
		b.state = StateClosed
		b.failureCount = 0
		b.successCount = 0
		change.Closed = true
		return true, change
	}
	b.failureCount = 0
	return true, change
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastProbe = time.Time{}
}
