// Package resilience provides reliability patterns for outbound API calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker is a circuit breaker protecting the public weather and currency
// APIs. It counts consecutive failures and trips when a threshold is
// reached, rejecting calls for a cooldown period. The first call after the
// cooldown probes the upstream: success closes the circuit, failure trips
// it again.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	consecutive int
	openUntil   time.Time // zero while the circuit is closed
	now         func() time.Time
}

// NewBreaker creates a circuit breaker that trips after maxFailures
// consecutive failures and rejects calls for the given cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	callErr := fn()
	b.record(probe, callErr)
	return callErr
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() {
		return false, nil
	}
	if b.now().Before(b.openUntil) {
		return false, ErrCircuitOpen
	}
	// Cooldown elapsed, let this call through as a probe.
	return true, nil
}

func (b *Breaker) record(probe bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if callErr == nil {
		b.consecutive = 0
		b.openUntil = time.Time{}
		return
	}
	b.consecutive++
	if probe || b.consecutive >= b.maxFailures {
		b.openUntil = b.now().Add(b.cooldown)
	}
}
