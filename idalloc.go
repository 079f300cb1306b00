package iotproto

import (
	"math/rand"
	"sync"
)

// idAllocator allocates 16-bit request ids, rejecting zero and any id
// already present in a connection's in-flight table, using a
// per-connection PRNG with rejection.
type idAllocator struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func newIDAllocator() *idAllocator {
	return &idAllocator{rand: rand.New(rand.NewSource(rand.Int63()))}
}

// maxAllocationAttempts bounds retries before giving up with
// ErrIDAllocationExhausted; the wire range is 1..9999.
const (
	idAllocMin            = 1
	idAllocMax            = 9999
	maxAllocationAttempts = 64
)

// reserve returns a fresh id not present in taken, or
// ErrIDAllocationExhausted after maxAllocationAttempts tries.
func (a *idAllocator) reserve(taken func(uint16) bool) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < maxAllocationAttempts; i++ {
		candidate := uint16(idAllocMin + a.rand.Intn(idAllocMax-idAllocMin+1))
		if candidate == 0 {
			continue
		}
		if taken == nil || !taken(candidate) {
			return candidate, nil
		}
	}
	return 0, ErrIDAllocationExhausted
}
