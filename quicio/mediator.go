package quicio

import (
	"github.com/aio-rt/aio/reactor"
	"github.com/aio-rt/aio/syncutil"
)

// Mediator guards a single value of type S behind a syncutil.Shared and
// a named-event waker registry, generalizing future_mediator's
// LocalMediator/SharedData split (original_source/hala-net's
// conn_state.rs) into Go: an event key is a string built from
// (operation, trace id, [stream id]) by the key builders in event.go,
// the poll closure passed to OnPoll plays the role of the quiche_conn
// operation run under the guard, and Notify plays the role of
// SharedData::notify.
//
// Which concrete Shared/Locker pair backs a Mediator is a construction
// choice (NewMediator's flavor argument), not a type parameter — the
// single-goroutine vs multi-goroutine flavor is visible to callers only
// through which pair NewMediator picked, never through the Mediator's
// own API.
type Mediator[S any] struct {
	shared    syncutil.Shared[S]
	wakerLock syncutil.Locker
	wakers    map[string][]*reactor.Waker
}

// NewMediator builds a Mediator of the given flavor around initial.
// flavor is threaded in by whatever constructed the Conn (Connector,
// Acceptor, or a test) from the Driver/Poller's own thread-model choice
// — ground: hala-io-driver/src/mio/poller.rs's ThreadModel.
func NewMediator[S any](flavor syncutil.Flavor, initial S) *Mediator[S] {
	return &Mediator[S]{
		shared:    syncutil.NewShared(flavor, initial),
		wakerLock: syncutil.NewLockerFor(flavor),
		wakers:    make(map[string][]*reactor.Waker),
	}
}

// With runs fn with the guarded state locked, for operations with no
// suspension — is_closed, close, stream_finished in the original.
func (m *Mediator[S]) With(fn func(s *S)) {
	m.shared.LockMut(fn)
}

// register must run with m's state lock held (always true from inside
// an OnPoll poll closure) — it takes the waker lock itself, nested
// inside the state lock, never the other way around.
func (m *Mediator[S]) register(key string, w *reactor.Waker) {
	g := m.wakerLock.Lock()
	defer g.Unlock()
	m.wakers[key] = append(m.wakers[key], w)
}

// notifyLocked wakes and clears every waiter under key. Callers must
// already hold m's state lock — it exists for use inside an OnPoll
// closure, which runs with the guard held (mirroring SharedData::notify
// being callable from inside a poll closure in the original).
func (m *Mediator[S]) notifyLocked(key string) {
	g := m.wakerLock.Lock()
	ws := m.wakers[key]
	delete(m.wakers, key)
	g.Unlock()
	for _, w := range ws {
		w.Wake()
	}
}

// Notify is notifyLocked's standalone counterpart for callers that
// don't already hold the state guard (e.g. DriveTimers, between OnPoll
// calls) — it only ever takes the waker lock, so it never nests under
// or reverses the state-lock-then-waker-lock order register/
// notifyLocked rely on.
func (m *Mediator[S]) Notify(key string) {
	m.notifyLocked(key)
}

// wakeAllLocked wakes every registered waiter across every key. Callers
// must already hold m's state lock.
func (m *Mediator[S]) wakeAllLocked() {
	g := m.wakerLock.Lock()
	all := m.wakers
	m.wakers = make(map[string][]*reactor.Waker)
	g.Unlock()
	for _, ws := range all {
		for _, w := range ws {
			w.Wake()
		}
	}
}

// WakeAll is wakeAllLocked's standalone counterpart, used once at
// connection close the way handle_close calls cx.wakeup_all().
func (m *Mediator[S]) WakeAll() {
	m.wakeAllLocked()
}
