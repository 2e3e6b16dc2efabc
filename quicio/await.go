package quicio

import (
	"context"

	"github.com/aio-rt/aio/reactor"
)

// OnPoll runs poll against m's guarded state and suspends the caller
// until poll reports ready, generalizing future_mediator::LocalMediator's
// on_poll (an async fn built from a Future::poll closure) into Go's
// goroutine-blocks-on-channel suspension model — the same shape
// reactor.Await uses for driver Cmds, but keyed by name instead of a
// single stored Waker, since several distinct operations can be
// pending against one Conn at once (Send, Recv, each stream's
// StreamSend/StreamRecv, Accept, OpenStream).
//
// poll returns (value, ready, err): ready == false && err == nil means
// "no progress possible yet", the Conn-level equivalent of
// driver.ErrWouldBlock. OnPoll itself never inspects S's contents — the
// closure is solely responsible for running the one operation it
// represents and calling m's notify methods for any other operation it
// unblocked as a side effect.
func OnPoll[S any, T any](ctx context.Context, m *Mediator[S], key string, poll func(s *S) (T, bool, error)) (T, error) {
	for {
		w := reactor.NewWaker()

		var v T
		var ready bool
		var err error
		m.shared.LockMut(func(s *S) {
			v, ready, err = poll(s)
			if !ready && err == nil {
				m.register(key, w)
			}
		})

		if ready || err != nil {
			return v, err
		}

		select {
		case <-w.Done():
			continue
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
