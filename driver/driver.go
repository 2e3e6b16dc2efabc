package driver

import (
	"sync"
	"sync/atomic"
)

// Driver is the sole virtualization surface above OS I/O. Every command
// that can block returns either a final Result or ErrWouldBlock; on
// ErrWouldBlock the Waker passed in the Cmd MUST already have been
// stored by the driver against the handle's pending slot for that
// interest, ready to be invoked exactly once the next time the reactor
// observes readiness for that handle.
type Driver interface {
	FDOpen(desc Description, flags OpenFlags) (Handle, error)
	FDClose(h Handle) error
	FDCntl(h Handle, cmd Cmd) (Result, error)
}

// process-wide driver registration: a one-shot global, mirroring the
// OnceLock<Driver> + "register twice is PermissionDenied" contract of
// spec §6.
var (
	globalDriver  atomic.Pointer[Driver]
	registerGuard sync.Once
	registered    atomic.Bool
)

// RegisterDriver installs the process-wide driver. A second call fails
// with ErrPermissionDenied; the first registration always wins.
func RegisterDriver(d Driver) error {
	if !registered.CompareAndSwap(false, true) {
		return ErrPermissionDenied
	}
	globalDriver.Store(&d)
	return nil
}

// GetDriver returns the registered driver, or ErrNotFound if
// RegisterDriver was never called.
func GetDriver() (Driver, error) {
	p := globalDriver.Load()
	if p == nil {
		return nil, ErrNotFound
	}
	return *p, nil
}

// ResetForTesting clears process-wide registration. It exists only so
// package-level tests across this module can run in isolation within
// the same test binary; production code never calls it.
func ResetForTesting() {
	globalDriver.Store(nil)
	registered.Store(false)
	registerGuard = sync.Once{}
}
