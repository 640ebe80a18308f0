// Package lock provides keyed non-reentrant operations: a second caller for
// a key that is already held is dropped instead of queued.
package lock

import (
	"sync"
)

// keyMutex wraps a mutex with the number of goroutines holding it.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// Guard provides per-key locking.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewGuard creates a new Guard instance.
func NewGuard() *Guard {
	return &Guard{locks: make(map[string]*keyMutex)}
}

// acquire returns the mutex for key, registering the caller as a reference.
func (g *Guard) acquire(key string) *keyMutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	km, ok := g.locks[key]
	if !ok {
		km = &keyMutex{}
		g.locks[key] = km
	}
	km.refs++
	return km
}

// release drops a reference and forgets the key once nobody uses it.
func (g *Guard) release(key string, km *keyMutex) {
	g.mu.Lock()
	defer g.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(g.locks, key)
	}
}

// tryLock attempts to acquire the lock without blocking.
func (g *Guard) tryLock(key string) (*keyMutex, bool) {
	km := g.acquire(key)
	if km.mu.TryLock() {
		return km, true
	}
	g.release(key, km)
	return nil, false
}

func (g *Guard) unlock(key string, km *keyMutex) {
	km.mu.Unlock()
	g.release(key, km)
}

// TryDo executes fn only if nobody else holds key. A concurrent caller gets
// ErrBusy immediately and fn is not run. The lock is released when fn
// returns, including when it panics.
func (g *Guard) TryDo(key string, fn func() error) error {
	km, ok := g.tryLock(key)
	if !ok {
		return ErrBusy
	}
	defer g.unlock(key, km)
	return fn()
}
