// Package dedup tracks which URLs have already been scheduled during a run.
//
// The Set is a scalable bloom filter: a chain of fixed-size filters from
// github.com/bits-and-blooms/bloom/v3. When the newest filter reaches its
// capacity a larger one with a tighter false-positive rate is appended, so
// memory grows with the number of URLs while the compound false-positive
// rate stays below the configured bound (error rate / (1 - tightening)).
//
// A bloom filter never forgets an inserted URL, so an actual duplicate is
// always detected. A false positive means a genuinely new URL is skipped,
// which happens at most at the documented rate.
package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nao1215/exposcan/internal/target"
)

const (
	// DefaultCapacity is the expected number of URLs in the first stage.
	DefaultCapacity = 10000

	// DefaultErrorRate is the false-positive rate of the first stage.
	DefaultErrorRate = 0.001

	// growth multiplies the capacity of each new stage.
	growth = 2

	// tightening multiplies the false-positive rate of each new stage.
	tightening = 0.5
)

// stage is one fixed-size filter of the chain.
type stage struct {
	filter   *bloom.BloomFilter
	capacity uint
	count    uint
}

// Set is a concurrency-safe probabilistic set of URLs.
type Set struct {
	mu        sync.Mutex
	stages    []*stage
	capacity  uint
	errorRate float64
	total     uint
}

// Option configures a Set.
type Option func(*Set)

// WithCapacity sets the capacity of the first stage.
func WithCapacity(n uint) Option {
	return func(s *Set) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithErrorRate sets the false-positive rate of the first stage.
// Values outside (0, 1) are ignored.
func WithErrorRate(p float64) Option {
	return func(s *Set) {
		if p > 0 && p < 1 {
			s.errorRate = p
		}
	}
}

// New creates an empty Set.
func New(opts ...Option) *Set {
	s := &Set{
		capacity:  DefaultCapacity,
		errorRate: DefaultErrorRate,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stages = []*stage{newStage(s.capacity, s.errorRate)}
	return s
}

func newStage(capacity uint, errorRate float64) *stage {
	return &stage{
		filter:   bloom.NewWithEstimates(capacity, errorRate),
		capacity: capacity,
	}
}

// TryAdd inserts u if it is not already present. It returns true when the
// caller added the URL and therefore owns the right to schedule it.
// The test and the insert happen under one lock.
func (s *Set) TryAdd(u target.URL) bool {
	return s.TryAddString(u.String())
}

// TryAddString is TryAdd for an already canonical string key.
func (s *Set) TryAddString(key string) bool {
	data := []byte(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stages {
		if st.filter.Test(data) {
			return false
		}
	}

	current := s.stages[len(s.stages)-1]
	if current.count >= current.capacity {
		next := newStage(current.capacity*growth, s.errorRate*pow(tightening, len(s.stages)))
		s.stages = append(s.stages, next)
		current = next
	}

	current.filter.Add(data)
	current.count++
	s.total++
	return true
}

// Len returns the number of URLs added.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.total)
}

// Stages returns the number of filters in the chain.
func (s *Set) Stages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stages)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for range exp {
		result *= base
	}
	return result
}
