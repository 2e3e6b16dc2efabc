package syncutil

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// LockerGuard releases the lock it was acquired from. Unlock may be
// called before the guard would otherwise go out of scope (the whole
// point of returning a guard instead of nothing), and is safe to call
// more than once — the second call is a no-op, mirroring
// external/locks/src/mutex.rs's MutexGuard::unlock taking its
// Option<std::sync::MutexGuard> so a repeat call finds it already gone.
type LockerGuard interface {
	Unlock()
}

// Locker is the mutual-exclusion contract the mediator needs: blocking
// acquisition returning a guard, plus a non-blocking try-acquire,
// matching external/locks/src/mutex.rs's Locker trait
// (sync_lock/try_sync_lock) generalized from an associated Guard type
// into the LockerGuard interface.
type Locker interface {
	Lock() LockerGuard
	TryLock() (LockerGuard, bool)
}

// NewLockerFor builds the Locker matching flavor: SpinMutex for
// LocalFlavor (a single goroutine's uncontended critical sections),
// MutexLocker otherwise.
func NewLockerFor(flavor Flavor) Locker {
	if flavor == LocalFlavor {
		return &SpinMutex{}
	}
	return &MutexLocker{}
}

// MutexLocker adapts sync.Mutex to Locker.
type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) Lock() LockerGuard {
	l.mu.Lock()
	return &mutexGuard{mu: &l.mu}
}

func (l *MutexLocker) TryLock() (LockerGuard, bool) {
	if !l.mu.TryLock() {
		return nil, false
	}
	return &mutexGuard{mu: &l.mu}, true
}

type mutexGuard struct {
	mu   *sync.Mutex
	done bool
}

func (g *mutexGuard) Unlock() {
	if g.done {
		return
	}
	g.done = true
	g.mu.Unlock()
}

// SpinMutex is a CAS spinlock for short, uncontended critical sections
// (one mediator-state field flip) where the cost of a futex round trip
// through sync.Mutex would dominate the work being guarded. No pack
// example imports a third-party spinlock package, so this is built
// directly on sync/atomic — see DESIGN.md for the stdlib-only
// justification.
type SpinMutex struct {
	state atomic.Bool
}

func (l *SpinMutex) Lock() LockerGuard {
	for !l.state.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return &spinGuard{l: l}
}

func (l *SpinMutex) TryLock() (LockerGuard, bool) {
	if !l.state.CompareAndSwap(false, true) {
		return nil, false
	}
	return &spinGuard{l: l}, true
}

type spinGuard struct {
	l    *SpinMutex
	done bool
}

func (g *spinGuard) Unlock() {
	if g.done {
		return
	}
	g.done = true
	g.l.state.Store(false)
}
