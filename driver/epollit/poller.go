//go:build linux

package epollit

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/timewheel"
)

func epollEvents(i driver.Interest) uint32 {
	var ev uint32
	if i.Has(driver.Readable) {
		ev |= unix.EPOLLIN
	}
	if i.Has(driver.Writable) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (d *Driver) cntlRegister(st *handleState, h driver.Handle, cmd driver.RegisterCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrInvalidInput
	}

	ev := &unix.EpollEvent{Events: epollEvents(cmd.Interests)}
	ev.Fd = int32(h.Token)
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return driver.Result{}, err
	}

	st.mu.Lock()
	st.registered = true
	st.interests = cmd.Interests
	st.mu.Unlock()

	d.mu.Lock()
	d.fdByToken[h.Token] = fd
	d.mu.Unlock()
	return driver.UnitResult(), nil
}

func (d *Driver) cntlReregister(st *handleState, h driver.Handle, cmd driver.ReregisterCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	registered := st.registered
	st.mu.Unlock()
	if !registered {
		return driver.Result{}, driver.ErrInvalidInput
	}

	ev := &unix.EpollEvent{Events: epollEvents(cmd.Interests)}
	ev.Fd = int32(h.Token)
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return driver.Result{}, err
	}

	st.mu.Lock()
	st.interests = cmd.Interests
	st.mu.Unlock()
	return driver.UnitResult(), nil
}

func (d *Driver) cntlDeregister(st *handleState, h driver.Handle) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.registered = false
	st.mu.Unlock()
	if fd >= 0 {
		unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}

	d.mu.Lock()
	delete(d.fdByToken, h.Token)
	d.mu.Unlock()
	return driver.UnitResult(), nil
}

func (d *Driver) cntlTimerArm(st *handleState, h driver.Handle, cmd driver.TimerArmCmd) (driver.Result, error) {
	if st.desc != driver.Timeout {
		return driver.Result{}, driver.ErrInvalidInput
	}
	if cmd.Duration <= 0 {
		return driver.Result{}, driver.ErrInvalidInput
	}

	// Lock order is always d.mu before st.mu (matching cntlPollOnce and
	// FDClose) — never the reverse, or an arm racing a poll/close could
	// AB-BA deadlock.
	d.mu.Lock()
	defer d.mu.Unlock()

	st.mu.Lock()
	if st.armed {
		d.wheel.Remove(st.slot)
	}
	// The wheel's current slot stands for d.lastTick, so the time already
	// elapsed since then is counted in to keep the timer from firing early.
	ticks := timewheel.TicksFor(time.Since(d.lastTick)+cmd.Duration, d.tick)
	st.slot = d.wheel.Add(ticks, h.Token)
	st.duration = cmd.Duration
	st.armed = true
	st.mu.Unlock()

	return driver.UnitResult(), nil
}

// cntlPollOnce implements spec §4.2's five-step loop: compute the
// effective wait bound by the next timer tick, call epoll_wait once,
// advance the wheel by elapsed ticks, invoke/clear stored wakers for
// every descriptor epoll reported ready, and return the merged event
// list so a reactor loop can additionally react to it directly.
func (d *Driver) cntlPollOnce(cmd driver.PollOnceCmd) (driver.Result, error) {
	waitMS := int(d.tick / time.Millisecond)
	if waitMS < 1 {
		waitMS = 1
	}
	if cmd.HasTimeout {
		if ms := int(cmd.Timeout / time.Millisecond); ms < waitMS {
			waitMS = ms
		}
	}

	var raw [128]unix.EpollEvent
	n, err := unix.EpollWait(d.epfd, raw[:], waitMS)
	if err != nil && err != unix.EINTR {
		return driver.Result{}, err
	}

	events := make([]driver.Event, 0, n)
	for i := 0; i < n; i++ {
		tok := driver.Token(raw[i].Fd)
		interest := driver.Interest(0)
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			interest |= driver.Readable
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			interest |= driver.Writable
		}
		events = append(events, driver.Event{Token: tok, Interest: interest})
		d.wakeHandle(tok, interest)
	}

	d.mu.Lock()
	elapsed := int(time.Since(d.lastTick) / d.tick)
	d.lastTick = d.lastTick.Add(time.Duration(elapsed) * d.tick)
	expired := d.wheel.AdvanceBy(elapsed)
	d.mu.Unlock()
	for _, tok := range expired {
		events = append(events, driver.Event{Token: tok, Interest: driver.Readable})
		d.mu.Lock()
		if st, ok := d.handles[tok]; ok {
			st.mu.Lock()
			st.armed = false
			st.mu.Unlock()
		}
		d.mu.Unlock()
	}

	return driver.EventsResult(events), nil
}

// wakeHandle fires and clears the waker slots matching interest for the
// handle identified by tok, the way the mediator in quicio wakes a
// single named event — see DESIGN.md for the parallel.
func (d *Driver) wakeHandle(tok driver.Token, interest driver.Interest) {
	d.mu.Lock()
	st, ok := d.handles[tok]
	d.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	var wakers []driver.Waker
	if interest.Has(driver.Readable) {
		if st.readWaker != nil {
			wakers = append(wakers, st.readWaker)
			st.readWaker = nil
		}
		if st.acceptWaker != nil {
			wakers = append(wakers, st.acceptWaker)
			st.acceptWaker = nil
		}
	}
	if interest.Has(driver.Writable) && st.writeWaker != nil {
		wakers = append(wakers, st.writeWaker)
		st.writeWaker = nil
	}
	st.mu.Unlock()

	for _, w := range wakers {
		w.Wake()
	}
}
