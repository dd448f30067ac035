// Package keylock provides per-key mutual exclusion with a bounded
// acquisition wait. The bid acceptance protocol uses it to serialize
// concurrent bids on the same auction while leaving unrelated auctions
// completely independent.
package keylock

import (
	"errors"
	"sync"
	"time"
)

// ErrAcquireTimeout is returned when a key's lock could not be acquired
// within the caller's deadline. Callers treat it as retryable.
var ErrAcquireTimeout = errors.New("keylock: acquisition timed out")

// KeyLock hands out one lock per key on demand. Lock entries are never
// removed; key cardinality is bounded by the number of auctions ever seen
// by the process.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// New creates an empty KeyLock
func New() *KeyLock {
	return &KeyLock{
		locks: make(map[string]chan struct{}),
	}
}

// sem returns the semaphore channel for key, creating it on first use
func (k *KeyLock) sem(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()

	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

// Acquire takes the lock for key, waiting at most timeout. On success it
// returns a release function that must be called exactly once; on timeout it
// returns ErrAcquireTimeout.
func (k *KeyLock) Acquire(key string, timeout time.Duration) (func(), error) {
	ch := k.sem(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, nil
	case <-timer.C:
		return nil, ErrAcquireTimeout
	}
}
