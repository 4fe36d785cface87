package cmap

import "sync"

// DefaultStripeCount is the default number of lock stripes.
const DefaultStripeCount = 64

// Striped is a fixed set of mutexes selected by key hash.
//
// Two keys may share a stripe; callers must not hold one stripe while
// acquiring another.
type Striped struct {
	locks []sync.Mutex
	mask  uint64
}

// NewStriped creates a Striped lock with n stripes.
// n that is not a positive power of 2 falls back to DefaultStripeCount.
func NewStriped(n int) *Striped {
	if !isPowerOfTwo(n) {
		n = DefaultStripeCount
	}
	return &Striped{
		locks: make([]sync.Mutex, n),
		mask:  uint64(n - 1),
	}
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Striped) Lock(key string) (unlock func()) {
	mu := &s.locks[hashKey(key)&s.mask]
	mu.Lock()
	return mu.Unlock
}
