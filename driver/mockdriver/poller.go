package mockdriver

import (
	"time"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/timewheel"
)

// PollOnce implements spec.md §4.2's five-step event-loop step, minus
// live OS-event collection: socket readiness in this driver completes
// directly via per-operation background goroutines invoking their Waker
// (see socket.go), so the only thing PollOnce multiplexes here is the
// timer wheel — still enough to satisfy the Timer Expiry scenario in
// spec §8 exactly (a token delivered with Readable interest once, within
// [d, d+tick]).
func (d *Driver) cntlPollOnce(cmd driver.PollOnceCmd) (driver.Result, error) {
	wait := d.tick
	if cmd.HasTimeout && cmd.Timeout < wait {
		wait = cmd.Timeout
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	ticks := int(wait / d.tick)
	if ticks < 1 {
		ticks = 1
	}

	d.mu.Lock()
	expired := d.wheel.AdvanceBy(ticks)
	d.mu.Unlock()

	events := make([]driver.Event, 0, len(expired))
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

func (d *Driver) cntlRegister(st *handleState, cmd driver.RegisterCmd) (driver.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.registered = true
	st.interests = cmd.Interests
	return driver.UnitResult(), nil
}

func (d *Driver) cntlReregister(st *handleState, cmd driver.ReregisterCmd) (driver.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.registered {
		return driver.Result{}, driver.ErrInvalidInput
	}
	st.interests = cmd.Interests
	return driver.UnitResult(), nil
}

func (d *Driver) cntlDeregister(st *handleState) (driver.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.registered = false
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
	ticks := timewheel.TicksFor(cmd.Duration, d.tick)
	st.slot = d.wheel.Add(ticks, h.Token)
	st.duration = cmd.Duration
	st.armed = true
	st.startedAt = time.Now()
	st.mu.Unlock()

	return driver.UnitResult(), nil
}
