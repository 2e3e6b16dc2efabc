//go:build linux

// Package epollit is the Linux OS-event driver.Driver: sockets are
// backed by raw, non-blocking file descriptors registered with epoll,
// and timers ride a timewheel.Wheel the way hala's BasicMioPoller rides
// mio + timewheel (original_source/hala-io-driver/src/mio/poller.rs).
// Socket fds are dup()'d out of the stdlib net package exactly the way
// socket515-gaio/watcher.go's dupconn does, so the library never
// contends with the Go runtime's own netpoller for the same fd.
package epollit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/syncutil"
	"github.com/aio-rt/aio/timewheel"
)

type handleState struct {
	mu   sync.Mutex
	desc driver.Description
	fd   int // -1 for Timeout/Poller handles

	registered bool
	interests  driver.Interest

	readWaker   driver.Waker
	writeWaker  driver.Waker
	acceptWaker driver.Waker

	// timer bookkeeping
	duration time.Duration
	armed    bool
	slot     timewheel.Slot
}

// Driver is the epollit Driver: one epoll instance, one handle table,
// one timer wheel. A process typically has exactly one of these per
// reactor thread (single-threaded flavor) or one shared across a worker
// pool (multi-threaded flavor) — see spec §5.
type Driver struct {
	mu      sync.Mutex
	handles map[driver.Token]*handleState
	fdByToken map[driver.Token]int

	epfd  int
	wheel *timewheel.Wheel[driver.Token]
	tick  time.Duration

	lastTick time.Time

	workers int

	log zerolog.Logger
}

// Option configures New.
type Option func(*Driver)

// WithTick overrides the default 1ms timer-wheel tick.
func WithTick(d time.Duration) Option {
	return func(drv *Driver) { drv.tick = d }
}

// WithLogger attaches a zerolog.Logger; the zero value (zerolog.Nop())
// is used otherwise.
func WithLogger(log zerolog.Logger) Option {
	return func(drv *Driver) { drv.log = log }
}

// WithWorkers selects the thread model this Driver's callers should
// build their syncutil.Shared state around — one reactor goroutine
// driving everything (n <= 1, the default) or a worker pool sharing
// this Driver across goroutines (n > 1) — ground:
// hala-io-driver/src/mio/poller.rs's ThreadModel/STModel/MTModel
// per-instance strategy parameter. The Driver itself is always safe for
// concurrent use either way (every handle/wheel access already goes
// through d.mu/st.mu); WithWorkers only changes what SharedFlavor
// reports, which callers building quicio.Conns against this Driver
// should pass to quicio.NewConn so the mediator's own locking matches.
func WithWorkers(n int) Option {
	return func(drv *Driver) { drv.workers = n }
}

// SharedFlavor reports the syncutil.Flavor matching this Driver's
// configured thread model: syncutil.LocalFlavor for the single-reactor
// default, syncutil.MutexFlavor once WithWorkers(n) configures more than
// one worker.
func (d *Driver) SharedFlavor() syncutil.Flavor {
	if d.workers > 1 {
		return syncutil.MutexFlavor
	}
	return syncutil.LocalFlavor
}

// New creates an epoll-backed Driver.
func New(opts ...Option) (*Driver, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		handles:   make(map[driver.Token]*handleState),
		fdByToken: make(map[driver.Token]int),
		epfd:     epfd,
		tick:     timewheel.DefaultTick,
		lastTick: time.Now(),
		workers:  1,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.wheel = timewheel.New[driver.Token](timewheel.DefaultSlots, d.tick)
	return d, nil
}

func (d *Driver) FDOpen(desc driver.Description, flags driver.OpenFlags) (driver.Handle, error) {
	switch desc {
	case driver.TcpListener, driver.TcpStream, driver.UdpSocket, driver.Timeout, driver.Poller:
	default:
		return driver.Handle{}, driver.ErrInvalidInput
	}

	h := driver.Handle{Desc: desc, Token: driver.NextToken()}
	d.mu.Lock()
	d.handles[h.Token] = &handleState{desc: desc, fd: -1}
	d.mu.Unlock()

	d.log.Trace().Stringer("handle", h).Msg("fd_open")
	return h, nil
}

func (d *Driver) lookup(h driver.Handle) (*handleState, error) {
	d.mu.Lock()
	st, ok := d.handles[h.Token]
	d.mu.Unlock()
	if !ok {
		return nil, driver.ErrNotFound
	}
	return st, nil
}

func (d *Driver) FDClose(h driver.Handle) error {
	st, err := d.lookup(h)
	if err != nil {
		return err
	}

	// Lock order is always d.mu before st.mu (matching cntlPollOnce and
	// cntlTimerArm) — never the reverse, or a close racing an arm/poll
	// could AB-BA deadlock.
	d.mu.Lock()
	st.mu.Lock()
	if st.registered {
		st.mu.Unlock()
		d.mu.Unlock()
		return driver.ErrInvalidInput
	}
	var closeErr error
	if st.fd >= 0 {
		closeErr = unix.Close(st.fd)
		st.fd = -1
	}
	if st.armed {
		d.wheel.Remove(st.slot)
		st.armed = false
	}
	st.mu.Unlock()

	delete(d.handles, h.Token)
	d.mu.Unlock()

	d.log.Trace().Stringer("handle", h).Msg("fd_close")
	return closeErr
}

// Close releases the underlying epoll fd. Callers must have already
// deregistered and closed every handle.
func (d *Driver) Close() error {
	return unix.Close(d.epfd)
}
