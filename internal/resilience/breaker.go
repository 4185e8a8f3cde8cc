// Package resilience guards calls to external services.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

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

// Breaker opens after maxFailures consecutive failures and rejects calls until
// cooldown has elapsed; the next call is a half-open probe.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time

	// OnStateChange, when set, is called outside the lock after every transition.
	OnStateChange func(from, to State)
}

func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State reports the current state, promoting open to half-open once the cooldown passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn unless the circuit is open. A cancelled caller context is not
// counted against the remote service.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	from, ok := b.allow()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}

	b.mu.Lock()
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	} else {
		b.failures = 0
		b.state = StateClosed
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return err
}

func (b *Breaker) allow() (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			return b.state, false
		}
		b.state = StateHalfOpen
	}
	return b.state, true
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
