package quicio

import (
	"errors"
	"net"
	"time"
)

// SendInfo carries the local/remote socket tuple a packet should be
// sent from/to, mirroring quiche::SendInfo.
type SendInfo struct {
	From net.Addr
	To   net.Addr
	At   time.Time
}

// RecvInfo carries the socket tuple a received packet arrived on,
// mirroring quiche::RecvInfo.
type RecvInfo struct {
	From net.Addr
	To   net.Addr
}

// Engine is the sans-IO QUIC state machine contract this package
// mediates into an async multi-stream API — the Go shape of the
// quiche::Connection methods conn_state.rs drives directly. It is
// deliberately NOT satisfied by github.com/quic-go/quic-go's public
// types, whose API is connection-object-oriented and already async; see
// DESIGN.md for why that rules it out as this interface's shape. A real
// deployment adapts whatever sans-IO QUIC implementation it links
// against; quicio/quictest ships a reference implementation for tests.
type Engine interface {
	TraceID() string

	// Send drains up to len(buf) bytes of the next outgoing datagram.
	// Returns ErrDone when there is nothing to send right now.
	Send(buf []byte) (int, SendInfo, error)

	// Recv feeds one received datagram into the engine.
	Recv(buf []byte, info RecvInfo) (int, error)

	// StreamSend queues buf on streamID; fin marks the stream's last byte.
	// Returns ErrDone when flow control prevents sending right now.
	StreamSend(streamID uint64, buf []byte, fin bool) (int, error)

	// StreamRecv fills buf from streamID, reporting whether fin arrived.
	// Returns ErrDone when no data is available right now.
	StreamRecv(streamID uint64, buf []byte) (int, bool, error)

	// Readable and Writable list stream ids with pending data in each
	// direction, as of the last Send/Recv call.
	Readable() []uint64
	Writable() []uint64

	StreamFinished(streamID uint64) bool

	IsClosed() bool
	Close(app bool, errCode uint64, reason []byte) error

	// Timeout reports the duration until the engine's internal retransmit
	// clock should fire next; ok is false if no timer is armed.
	Timeout() (time.Duration, bool)
	OnTimeout()
}

// ErrDone signals "no progress possible right now, not a failure" — the
// quiche::Error::Done case threaded through every arm of conn_state.rs.
// Conn translates it into a Pending result for OnPoll rather than
// surfacing it to callers.
var ErrDone = errors.New("quicio: engine done")

// ErrConnClosed is returned by Conn/Stream operations attempted against
// an already-closed connection.
var ErrConnClosed = errors.New("quicio: connection closed")
