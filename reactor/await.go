package reactor

import (
	"context"
	"errors"

	"github.com/aio-rt/aio/driver"
)

// Try is the shape of a single non-blocking attempt: call the Cmd with a
// freshly minted Waker, and either complete or have the Waker stored by
// the driver for this handle's pending slot.
type Try[T any] func(w *Waker) (T, error)

// Await bridges a synchronous command returning driver.ErrWouldBlock into
// a suspension: on Ok it returns the value, on ErrWouldBlock it blocks
// until the Waker fires (or ctx is done) and retries, on any other error
// it returns the error immediately. Await itself is stateless — the
// driver is solely responsible for storing the waker between attempts.
func Await[T any](ctx context.Context, try Try[T]) (T, error) {
	for {
		waker := NewWaker()
		v, err := try(waker)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, driver.ErrWouldBlock) {
			return v, err
		}
		select {
		case <-waker.Done():
			// re-evaluate the readiness predicate; spurious wakeups are
			// permitted and simply cost one more non-blocking attempt.
			continue
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
