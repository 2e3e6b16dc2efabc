// Package ioerr classifies driver-level sentinel errors into the four
// classes named in driver/errors.go's taxonomy (Transient, Terminal,
// Programmer, Environmental), so logging call sites in netio/tcp and
// netio/udp can pick a log level without repeating a switch over every
// sentinel.
package ioerr

import (
	"errors"

	"github.com/aio-rt/aio/driver"
)

// Class is one of the four error categories a Driver can signal.
type Class int

const (
	Unknown Class = iota
	Transient
	Terminal
	Programmer
	Environmental
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Terminal:
		return "terminal"
	case Programmer:
		return "programmer"
	case Environmental:
		return "environmental"
	default:
		return "unknown"
	}
}

// Classify maps err to its Class by errors.Is against the driver
// sentinels. Wrapped errors are matched through, same as any
// errors.Is caller.
func Classify(err error) Class {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, driver.ErrWouldBlock):
		return Transient
	case errors.Is(err, driver.ErrInvalidInput):
		return Programmer
	case errors.Is(err, driver.ErrNotConnected),
		errors.Is(err, driver.ErrBrokenPipe),
		errors.Is(err, driver.ErrConnectionRefused),
		errors.Is(err, driver.ErrConnectionReset):
		return Terminal
	case errors.Is(err, driver.ErrNotFound),
		errors.Is(err, driver.ErrAddrInUse),
		errors.Is(err, driver.ErrPermissionDenied):
		return Environmental
	default:
		return Unknown
	}
}

// ShouldLogAsError reports whether a caller closing a handle or ending
// a session should surface err at error level rather than debug/trace —
// Transient errors never reach here (reactor.Await consumes them), so
// only Terminal/Programmer/Environmental/Unknown warrant attention.
func ShouldLogAsError(err error) bool {
	return Classify(err) != Transient
}
