// Package reactor provides the suspension machinery above driver.Driver:
// a concrete Waker, the WouldBlock-to-suspension adapter (Await), and the
// process-local poller slot used by tests and single-threaded runtimes.
//
// Go has no implicit async/await, so a "suspension point" here is a
// goroutine blocking on a channel receive; a Waker is a callable that
// closes that channel. This is the same shape the teacher library uses
// to unblock a caller waiting on WaitIO via a "hangup" channel
// (socket515-gaio/watcher.go) — generalized into a reusable type instead
// of being inlined per call site.
package reactor

import "sync"

// Waker implements driver.Waker. It may be invoked any number of times,
// from any goroutine, including after the task it represents has already
// resumed by other means — invocation after the first is a no-op. This
// is what lets a cancelled/dropped Await leave no dangling reference:
// the driver only ever holds this value, never the waiting goroutine.
type Waker struct {
	once sync.Once
	done chan struct{}
}

// NewWaker returns a fresh, unfired Waker.
func NewWaker() *Waker {
	return &Waker{done: make(chan struct{})}
}

// Wake reschedules the task that registered this waker. Safe to call
// from any goroutine, any number of times.
func (w *Waker) Wake() {
	w.once.Do(func() { close(w.done) })
}

// Done returns a channel that is closed exactly once, the first time
// Wake is called.
func (w *Waker) Done() <-chan struct{} {
	return w.done
}
