// Package quictest provides a reference quicio.Engine for tests: a pair
// of in-process peers that move stream bytes directly between each
// other's buffers instead of encoding/decoding real QUIC datagrams. It
// exercises quicio.Conn/Stream/Mediator's suspension and event-wiring
// logic without needing a real sans-IO QUIC implementation linked in.
//
// LoopbackEngine.Send/Recv are intentionally inert (always ErrDone):
// nothing in this package ever produces a datagram to carry, so callers
// must drive LoopbackEngine-backed Conns purely through their stream
// API (OpenStream/Accept/StreamSend/StreamRecv) — never through
// Conn.Send/Recv/Pump.
package quictest

import (
	"sync"
	"time"

	"github.com/aio-rt/aio/quicio"
)

type streamBuf struct {
	mu   sync.Mutex
	data []byte
	fin  bool
}

// LoopbackEngine is one side of an in-process peer pair.
type LoopbackEngine struct {
	traceID string
	peer    *LoopbackEngine

	mu          sync.Mutex
	closed      bool
	readableSet map[uint64]struct{}
	inbox       map[uint64]*streamBuf

	// selfPoke is invoked by the peer after it mutates this engine's
	// state, the in-process stand-in for "a datagram arrived and
	// Conn.Recv processed it". Wire it to this engine's own Conn.Poke
	// right after construction.
	selfPoke func()
}

// WireNotify hooks poke to be called whenever the peer engine mutates
// this engine's readable state (e.g. a StreamSend lands data for it).
// Call this once per engine, right after wrapping it in a quicio.Conn,
// passing that Conn's Poke method.
//
// poke runs synchronously, on whatever goroutine called the peer's
// StreamSend, and reaches into this engine's own Conn's Mediator lock
// while that goroutine may still hold the peer Conn's Mediator lock.
// That's fine for the one-writer-at-a-time scenarios this package's
// tests drive; a harness that writes from both peers concurrently would
// need poke to hand off through a channel instead of calling back
// in-line, to avoid two goroutines each holding one Conn's lock while
// waiting on the other's.
func (e *LoopbackEngine) WireNotify(poke func()) {
	e.mu.Lock()
	e.selfPoke = poke
	e.mu.Unlock()
}

// NewLoopbackPair returns two engines wired to each other: data written
// via a.StreamSend(id, ...) is read back via b.StreamRecv(id, ...) and
// vice versa.
func NewLoopbackPair(traceIDA, traceIDB string) (a, b *LoopbackEngine) {
	a = &LoopbackEngine{traceID: traceIDA, readableSet: map[uint64]struct{}{}, inbox: map[uint64]*streamBuf{}}
	b = &LoopbackEngine{traceID: traceIDB, readableSet: map[uint64]struct{}{}, inbox: map[uint64]*streamBuf{}}
	a.peer = b
	b.peer = a
	return a, b
}

func (e *LoopbackEngine) TraceID() string { return e.traceID }

func (e *LoopbackEngine) Send(buf []byte) (int, quicio.SendInfo, error) {
	return 0, quicio.SendInfo{}, quicio.ErrDone
}

func (e *LoopbackEngine) Recv(buf []byte, info quicio.RecvInfo) (int, error) {
	return 0, quicio.ErrDone
}

func (e *LoopbackEngine) inboxFor(streamID uint64) *streamBuf {
	e.mu.Lock()
	defer e.mu.Unlock()
	sb, ok := e.inbox[streamID]
	if !ok {
		sb = &streamBuf{}
		e.inbox[streamID] = sb
	}
	return sb
}

// StreamSend appends buf to the peer's inbox for streamID and marks it
// readable there.
func (e *LoopbackEngine) StreamSend(streamID uint64, buf []byte, fin bool) (int, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0, quicio.ErrDone
	}

	sb := e.peer.inboxFor(streamID)
	sb.mu.Lock()
	sb.data = append(sb.data, buf...)
	if fin {
		sb.fin = true
	}
	sb.mu.Unlock()

	e.peer.mu.Lock()
	e.peer.readableSet[streamID] = struct{}{}
	poke := e.peer.selfPoke
	e.peer.mu.Unlock()
	if poke != nil {
		poke()
	}

	return len(buf), nil
}

// StreamRecv reads from this engine's own inbox, populated by the
// peer's StreamSend calls.
func (e *LoopbackEngine) StreamRecv(streamID uint64, buf []byte) (int, bool, error) {
	sb := e.inboxFor(streamID)
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if len(sb.data) == 0 {
		if sb.fin {
			return 0, true, nil
		}
		return 0, false, quicio.ErrDone
	}

	n := copy(buf, sb.data)
	sb.data = sb.data[n:]
	fin := sb.fin && len(sb.data) == 0

	if len(sb.data) == 0 {
		e.mu.Lock()
		delete(e.readableSet, streamID)
		e.mu.Unlock()
	}
	return n, fin, nil
}

func (e *LoopbackEngine) Readable() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.readableSet))
	for id := range e.readableSet {
		ids = append(ids, id)
	}
	return ids
}

// Writable always reports none: the loopback pair has no flow-control
// window to model, so a stream only ever becomes visible via Readable.
func (e *LoopbackEngine) Writable() []uint64 { return nil }

func (e *LoopbackEngine) StreamFinished(streamID uint64) bool {
	e.mu.Lock()
	sb, ok := e.inbox[streamID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.fin && len(sb.data) == 0
}

func (e *LoopbackEngine) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *LoopbackEngine) Close(app bool, errCode uint64, reason []byte) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// Timeout/OnTimeout are no-ops: the loopback pair has no retransmission
// clock to drive.
func (e *LoopbackEngine) Timeout() (time.Duration, bool) { return 0, false }
func (e *LoopbackEngine) OnTimeout()                     {}
