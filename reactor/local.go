package reactor

import (
	"sync"
	"sync/atomic"

	"github.com/aio-rt/aio/driver"
)

// Poller identifies a driver Handle (Description == driver.Poller) plus
// the Driver that owns it. The netio and quicio adapters do not read
// this slot: they register each handle against itself through the
// Driver they were given. Analogous to hala-io-util's get_local_poller: a
// per-thread slot in the original, realized here as a process-local slot
// since Go goroutines aren't pinned to OS threads the way the original's
// single-threaded flavor assumed.
type Poller struct {
	Driver driver.Driver
	Handle driver.Handle
}

var (
	localPoller      atomic.Pointer[Poller]
	localRegistered  atomic.Bool
	localRegisterMux sync.Mutex
)

// RegisterLocalPoller installs the process-local default poller. A
// second call fails with driver.ErrPermissionDenied, mirroring
// RegisterDriver.
func RegisterLocalPoller(p Poller) error {
	localRegisterMux.Lock()
	defer localRegisterMux.Unlock()
	if !localRegistered.CompareAndSwap(false, true) {
		return driver.ErrPermissionDenied
	}
	localPoller.Store(&p)
	return nil
}

// GetLocalPoller returns the registered default poller, or
// driver.ErrNotFound if RegisterLocalPoller was never called.
func GetLocalPoller() (Poller, error) {
	p := localPoller.Load()
	if p == nil {
		return Poller{}, driver.ErrNotFound
	}
	return *p, nil
}

// ResetLocalPollerForTesting clears the local poller slot; only test
// code in this module calls it.
func ResetLocalPollerForTesting() {
	localRegisterMux.Lock()
	defer localRegisterMux.Unlock()
	localPoller.Store(nil)
	localRegistered.Store(false)
}
