package brain

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "open"
	}
}

// Breaker trips open after a run of consecutive failures inside a sliding
// window, fails fast for a cooldown, then admits a single half-open probe
// before closing again. Failure counting is global across users: the breaker
// protects the shared backend, not one conversation.
type Breaker struct {
	mu          sync.Mutex
	threshold   int
	window      time.Duration
	cooldown    time.Duration
	state       BreakerState
	consecutive int
	streakStart time.Time
	openedAt    time.Time
	probing     bool

	now func() time.Time
}

func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 30 * time.Second
	}
	if cooldown <= 0 {
		cooldown = 20 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While open it returns
// ErrBackendUnavailable without contacting the backend; after the cooldown it
// admits exactly one probe at a time.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBackendUnavailable
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	default: // BreakerHalfOpen
		if b.probing {
			return ErrBackendUnavailable
		}
		b.probing = true
		return nil
	}
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.probing = false
		if success {
			b.state = BreakerClosed
			b.consecutive = 0
			return
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
		return
	}

	if success {
		b.consecutive = 0
		return
	}

	now := b.now()
	if b.consecutive == 0 || now.Sub(b.streakStart) > b.window {
		b.consecutive = 0
		b.streakStart = now
	}
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = now
		b.consecutive = 0
	}
}

// State returns the current position for metrics and inspection.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
