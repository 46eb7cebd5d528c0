package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker around a Storage.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Breaker wraps a Storage in a circuit breaker so that a failing backend is not hammered
// by every mutation while it is down.
type Breaker struct {
	next Storage
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// NewBreaker creates a Storage decorator guarded by a circuit breaker.
func NewBreaker(next Storage, s BreakerSettings) *Breaker {
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
	}
	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]byte](st),
	}
}

// Get reads through the circuit breaker.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

// Set writes through the circuit breaker.
func (b *Breaker) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// isSuccessful keeps missing keys and caller cancellations from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, context.Canceled)
}
