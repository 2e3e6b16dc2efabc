package driver

import (
	"net"
	"time"
)

// Waker is the callable a suspending caller hands to a Cmd that can
// block. Invoking it must reschedule exactly the task that registered
// it. A Waker must tolerate being invoked more than once and after the
// caller it represents has already been rescheduled by other means
// (stale-waker invocation is a no-op, never an error) — this is what
// lets a dropped/cancelled await leave no dangling reference to freed
// storage: the driver only ever holds a Waker, never the goroutine.
type Waker interface {
	Wake()
}

// Cmd is the tagged-variant command vocabulary FDCntl dispatches on. It
// is a closed set implemented as a type switch in each Driver, not an
// open interface with virtual calls per-command (see DESIGN NOTES §9
// "Dynamic dispatch").
type Cmd interface {
	isCmd()
}

type BindCmd struct{ Addrs []net.Addr }

func (BindCmd) isCmd() {}

type ConnectCmd struct{ Addrs []net.Addr }

func (ConnectCmd) isCmd() {}

type AcceptCmd struct{ Waker Waker }

func (AcceptCmd) isCmd() {}

type ReadCmd struct {
	Waker Waker
	Buf   []byte
}

func (ReadCmd) isCmd() {}

type WriteCmd struct {
	Waker Waker
	Buf   []byte
}

func (WriteCmd) isCmd() {}

type SendToCmd struct {
	Waker Waker
	Buf   []byte
	Addr  net.Addr
}

func (SendToCmd) isCmd() {}

type RecvFromCmd struct {
	Waker Waker
	Buf   []byte
}

func (RecvFromCmd) isCmd() {}

type ShutdownCmd struct{ How Shutdown }

func (ShutdownCmd) isCmd() {}

type LocalAddrCmd struct{}

func (LocalAddrCmd) isCmd() {}

type RegisterCmd struct {
	Source    Handle
	Interests Interest
}

func (RegisterCmd) isCmd() {}

type ReregisterCmd struct {
	Source    Handle
	Interests Interest
}

func (ReregisterCmd) isCmd() {}

type DeregisterCmd struct{ Source Handle }

func (DeregisterCmd) isCmd() {}

// PollOnceCmd drives one reactor step. With HasTimeout false the wait is
// the poller's own tick duration; with HasTimeout true it is the smaller
// of Timeout and the tick, so a zero Timeout does not wait at all.
type PollOnceCmd struct {
	Timeout    time.Duration
	HasTimeout bool
}

func (PollOnceCmd) isCmd() {}

// TimerArmCmd (re-)arms a Timeout handle. A zero Duration is rejected by
// the driver with ErrInvalidInput.
type TimerArmCmd struct{ Duration time.Duration }

func (TimerArmCmd) isCmd() {}

// Event is a single (token, interest) readiness tuple as produced by
// PollOnce — either OS-reported readiness or a hashed-wheel timer
// expiry (always reported as Readable).
type Event struct {
	Token    Token
	Interest Interest
}

// Result is the tagged-union value FDCntl returns. Callers dispatch on
// the variant via the Try* helpers; calling the wrong one is a
// programmer error (ErrInvalidInput, "invalid result coercion").
type Result struct {
	kind resultKind
	n    int
	addr net.Addr
	incH Handle
	evts []Event
}

type resultKind int

const (
	resultNone resultKind = iota
	resultData
	resultAddr
	resultIncoming
	resultEvents
	resultRecvFrom
)

func UnitResult() Result { return Result{kind: resultNone} }

func DataResult(n int) Result { return Result{kind: resultData, n: n} }

func AddrResult(addr net.Addr) Result { return Result{kind: resultAddr, addr: addr} }

func IncomingResult(h Handle, addr net.Addr) Result {
	return Result{kind: resultIncoming, incH: h, addr: addr}
}

func EventsResult(evts []Event) Result { return Result{kind: resultEvents, evts: evts} }

// RecvFromResult carries both the byte count and the peer address
// returned by a RecvFromCmd.
func RecvFromResult(n int, addr net.Addr) Result {
	return Result{kind: resultRecvFrom, n: n, addr: addr}
}

// TryDataLen coerces a Result to the bytes-read/bytes-written variant.
func (r Result) TryDataLen() (int, error) {
	if r.kind != resultData {
		return 0, ErrInvalidInput
	}
	return r.n, nil
}

// TryAddr coerces a Result to the address variant.
func (r Result) TryAddr() (net.Addr, error) {
	if r.kind != resultAddr {
		return nil, ErrInvalidInput
	}
	return r.addr, nil
}

// TryRecvFrom coerces a Result to the (bytes, peer addr) variant used by
// RecvFromCmd.
func (r Result) TryRecvFrom() (int, net.Addr, error) {
	if r.kind != resultRecvFrom {
		return 0, nil, ErrInvalidInput
	}
	return r.n, r.addr, nil
}

// TryIncoming coerces a Result to the (Handle, peer addr) variant
// returned by AcceptCmd.
func (r Result) TryIncoming() (Handle, net.Addr, error) {
	if r.kind != resultIncoming {
		return Handle{}, nil, ErrInvalidInput
	}
	return r.incH, r.addr, nil
}

// TryEvents coerces a Result to the readiness-list variant returned by
// PollOnceCmd.
func (r Result) TryEvents() ([]Event, error) {
	if r.kind != resultEvents {
		return nil, ErrInvalidInput
	}
	return r.evts, nil
}
