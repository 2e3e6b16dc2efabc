// Package mockdriver is an in-process driver.Driver backed by real OS
// sockets (so TCP/UDP scenarios behave like the real thing) but with its
// own lightweight completion model instead of epoll: a background
// goroutine per in-flight blocking operation invokes the caller's stored
// Waker exactly once when the real syscall completes. It exists for the
// same reason the original source ships hala-io-test's mock/loop
// runtime: exercising the reactor/adapter/mediator contracts without
// depending on a platform-specific poller.
package mockdriver

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/timewheel"
)

type handleState struct {
	mu   sync.Mutex
	desc driver.Description

	listener net.Listener
	conn     net.Conn
	pconn    net.PacketConn

	registered bool
	interests  driver.Interest

	acceptInFlight bool
	readInFlight   bool
	writeInFlight  bool

	// timer-only fields
	duration  time.Duration
	armed     bool
	slot      timewheel.Slot
	startedAt time.Time
}

// tokenKey is the map key type pending completions are stored under.
type tokenKey = driver.Token

// Driver is the mockdriver.Driver implementation of driver.Driver.
type Driver struct {
	mu      sync.Mutex
	handles map[driver.Token]*handleState

	pendingReads     map[tokenKey]pendingReadResult
	pendingWrites    map[tokenKey]pendingReadResult
	pendingRecvFroms map[tokenKey]pendingRecvFromResult
	pendingAccepts   map[tokenKey]pendingIncoming

	wheel *timewheel.Wheel[driver.Token]
	tick  time.Duration

	log zerolog.Logger
}

// New creates a mockdriver.Driver. tick defaults to timewheel.DefaultTick
// if zero.
func New(log zerolog.Logger, tick time.Duration) *Driver {
	if tick <= 0 {
		tick = timewheel.DefaultTick
	}
	return &Driver{
		handles:          make(map[driver.Token]*handleState),
		pendingReads:     make(map[tokenKey]pendingReadResult),
		pendingWrites:    make(map[tokenKey]pendingReadResult),
		pendingRecvFroms: make(map[tokenKey]pendingRecvFromResult),
		pendingAccepts:   make(map[tokenKey]pendingIncoming),
		wheel:            timewheel.New[driver.Token](timewheel.DefaultSlots, tick),
		tick:             tick,
		log:              log,
	}
}

func (d *Driver) FDOpen(desc driver.Description, flags driver.OpenFlags) (driver.Handle, error) {
	switch desc {
	case driver.TcpListener, driver.TcpStream, driver.UdpSocket, driver.Timeout, driver.Poller:
	default:
		return driver.Handle{}, driver.ErrInvalidInput
	}

	h := driver.Handle{Desc: desc, Token: driver.NextToken()}
	st := &handleState{desc: desc}

	if desc == driver.Timeout {
		// duration arrives via TimerArmCmd, not open flags, per spec §3.
		_ = flags
	}

	d.mu.Lock()
	d.handles[h.Token] = st
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
	// could AB-BA deadlock. This also brings the wheel mutation below
	// under d.mu, the same lock every other access to the shared
	// container/list wheel holds (cntlPollOnce's AdvanceBy, cntlTimerArm):
	// guarding it with st.mu alone, as before, was an unsynchronized
	// data race on that list.
	d.mu.Lock()
	st.mu.Lock()
	if st.registered {
		st.mu.Unlock()
		d.mu.Unlock()
		return driver.ErrInvalidInput
	}
	var closeErr error
	switch {
	case st.conn != nil:
		closeErr = st.conn.Close()
	case st.listener != nil:
		closeErr = st.listener.Close()
	case st.pconn != nil:
		closeErr = st.pconn.Close()
	case st.armed:
		d.wheel.Remove(st.slot)
	}
	st.mu.Unlock()

	delete(d.handles, h.Token)
	d.mu.Unlock()

	d.log.Trace().Stringer("handle", h).Msg("fd_close")
	return closeErr
}
