package syncutil

import (
	"sync"
	"testing"
)

func TestLocalSharedLockMut(t *testing.T) {
	s := NewLocalShared(42)
	s.LockMut(func(v *int) { *v += 1 })
	s.Lock(func(v *int) {
		if *v != 43 {
			t.Fatalf("expected 43, got %d", *v)
		}
	})
}

func TestLocalSharedPanicsOnReentrantBorrow(t *testing.T) {
	s := NewLocalShared(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on reentrant borrow")
		}
	}()
	s.LockMut(func(v *int) {
		s.LockMut(func(v2 *int) {})
	})
}

func TestLocalSharedTryLockMutReportsContention(t *testing.T) {
	s := NewLocalShared(0)
	var innerOK bool
	outerOK := s.TryLockMut(func(v *int) {
		innerOK = s.TryLockMut(func(v2 *int) { *v2 = 1 })
	})
	if !outerOK {
		t.Fatal("expected outer TryLockMut to succeed")
	}
	if innerOK {
		t.Fatal("expected inner TryLockMut to report contention, not succeed")
	}
	if !s.TryLockMut(func(v *int) {
		if *v != 0 {
			t.Fatalf("expected inner attempt to have made no change, got %d", *v)
		}
	}) {
		t.Fatal("expected TryLockMut to succeed once unborrowed")
	}
}

func TestMutexSharedConcurrentIncrement(t *testing.T) {
	s := NewMutexShared(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.LockMut(func(v *int) { *v++ })
		}()
	}
	wg.Wait()
	s.Lock(func(v *int) {
		if *v != 100 {
			t.Fatalf("expected 100, got %d", *v)
		}
	})
}

func TestMutexSharedTryLockMutNonBlocking(t *testing.T) {
	s := NewMutexShared(0)
	release := make(chan struct{})
	held := make(chan struct{})
	go s.LockMut(func(v *int) {
		close(held)
		<-release
	})
	<-held

	if s.TryLockMut(func(v *int) { *v = 1 }) {
		t.Fatal("expected TryLockMut to report contention while locked")
	}
	close(release)

	for !s.TryLockMut(func(v *int) {
		if *v != 0 {
			t.Fatalf("expected unmodified value, got %d", *v)
		}
	}) {
	}
}

func TestSpinMutexMutualExclusion(t *testing.T) {
	var l SpinMutex
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := l.Lock()
			counter++
			g.Unlock()
		}()
	}
	wg.Wait()
	if counter != 200 {
		t.Fatalf("expected 200, got %d", counter)
	}
}

func TestSpinMutexTryLock(t *testing.T) {
	var l SpinMutex
	g := l.Lock()
	if _, ok := l.TryLock(); ok {
		t.Fatal("expected TryLock to fail while held")
	}
	g.Unlock()
	g2, ok := l.TryLock()
	if !ok {
		t.Fatal("expected TryLock to succeed once released")
	}
	g2.Unlock()
}

func TestMutexLockerTryLock(t *testing.T) {
	var l MutexLocker
	g := l.Lock()
	if _, ok := l.TryLock(); ok {
		t.Fatal("expected TryLock to fail while held")
	}
	g.Unlock()
	g.Unlock() // idempotent

	g2, ok := l.TryLock()
	if !ok {
		t.Fatal("expected TryLock to succeed once released")
	}
	g2.Unlock()
}
