// Package gate bounds the number of in-flight network operations.
//
// Every fetch holds one slot of the Gate for its whole duration, including
// reading the response body, so socket and memory usage stay bounded no
// matter how many links a page fans out to.
package gate

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("gate capacity must be positive")

// Gate is a counting admission primitive built on a weighted semaphore.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
	peak     atomic.Int64
	limiter  *rate.Limiter
}

// Option configures a Gate.
type Option func(*Gate)

// WithRateLimit additionally limits admissions to rps per second.
// A non-positive rps disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(g *Gate) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Gate admitting at most capacity concurrent holders.
func New(capacity int64, opts ...Option) (*Gate, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	g := &Gate{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Acquire blocks until a slot is free or ctx is done. On error no slot is held.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.sem.Release(1)
			return err
		}
	}

	n := g.inFlight.Add(1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Release returns a slot obtained by a successful Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Capacity returns the maximum number of concurrent holders.
func (g *Gate) Capacity() int64 {
	return g.capacity
}

// InFlight returns the number of slots currently held.
func (g *Gate) InFlight() int64 {
	return g.inFlight.Load()
}

// Peak returns the highest number of slots held at the same time.
func (g *Gate) Peak() int64 {
	return g.peak.Load()
}
