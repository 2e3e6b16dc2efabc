package driver

import "errors"

// Error classes from spec §4.1/§7. Drivers map the OS and net errors
// they recognise onto these sentinels; any other error is returned
// unchanged, so errors.Is against a class only matches mapped errors.
var (
	// ErrWouldBlock is transient: it is never surfaced to application
	// code above reactor.Await, which consumes it.
	ErrWouldBlock = errors.New("driver: operation would block")

	// ErrInvalidInput is a programmer error: an unknown handle kind was
	// given to a command that doesn't support it, or a result tag
	// mismatched what the caller expected.
	ErrInvalidInput = errors.New("driver: invalid input")

	// ErrNotConnected is terminal for the operation.
	ErrNotConnected = errors.New("driver: not connected")

	// ErrBrokenPipe is terminal for the operation; connection state
	// transitions to closed and wakers are flushed.
	ErrBrokenPipe = errors.New("driver: broken pipe")

	// ErrConnectionRefused and ErrConnectionReset are terminal-for-the-
	// operation errors from remote peer behavior.
	ErrConnectionRefused = errors.New("driver: connection refused")
	ErrConnectionReset   = errors.New("driver: connection reset")

	// ErrNotFound is environmental: returned when the process-wide
	// driver (or a named resource) was never registered.
	ErrNotFound = errors.New("driver: not found")

	// ErrAddrInUse is environmental.
	ErrAddrInUse = errors.New("driver: address already in use")

	// ErrPermissionDenied is environmental: returned by RegisterDriver
	// when called a second time.
	ErrPermissionDenied = errors.New("driver: permission denied")
)
