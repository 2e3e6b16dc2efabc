package quicio

import (
	"context"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/netio/udp"
	"github.com/aio-rt/aio/syncutil"
)

// ServerEngineFactory constructs the Engine for a not-yet-seen
// connection, after Acceptor has demultiplexed a datagram to a trace id
// it hasn't seen before. Connection-id extraction from the raw datagram
// is done by the idOf function passed to NewAcceptor, not by the
// factory or the Engine.
type ServerEngineFactory func(traceID string, local, remote net.Addr, firstDatagram []byte) (Engine, error)

// Acceptor demultiplexes inbound datagrams on one shared socket across
// many Conns by trace id, the server-side counterpart of Connector.
type Acceptor struct {
	sock    *udp.Socket
	flavor  syncutil.Flavor
	idOf    func(datagram []byte) (string, error)
	factory ServerEngineFactory
	log     zerolog.Logger

	mu    sync.Mutex
	conns map[string]*Conn
}

// NewAcceptor binds an Acceptor to sock. idOf extracts the trace id a
// raw datagram belongs to (e.g. a QUIC connection id); factory builds
// the Engine the first time a trace id is seen. flavor is passed
// through to every Conn Acceptor creates — see NewConn. Since Serve's
// own goroutine and each Conn's pumpSend/DriveTimers goroutines always
// touch the same Conn concurrently, flavor should normally be
// syncutil.MutexFlavor here; it stays a parameter rather than a
// hardcoded choice so a caller driving everything from one goroutine
// (no concurrent pump/timer goroutines) can still opt into
// syncutil.LocalFlavor.
func NewAcceptor(sock *udp.Socket, flavor syncutil.Flavor, idOf func([]byte) (string, error), factory ServerEngineFactory, log zerolog.Logger) *Acceptor {
	return &Acceptor{sock: sock, flavor: flavor, idOf: idOf, factory: factory, log: log, conns: make(map[string]*Conn)}
}

// Serve reads datagrams off sock until ctx is cancelled or the socket
// errors, routing each to its Conn (creating one on first sight of a
// trace id and publishing it on newConns) and feeding it via Conn.Recv.
func (a *Acceptor) Serve(ctx context.Context, newConns chan<- *Conn) error {
	buf := make([]byte, 65535)
	for {
		n, from, err := a.sock.RecvFrom(ctx, buf)
		if err != nil {
			return err
		}

		traceID, err := a.idOf(buf[:n])
		if err != nil {
			a.log.Debug().Err(err).Msg("acceptor: unparseable datagram, dropped")
			continue
		}

		conn, isNew, err := a.connFor(traceID, from, buf[:n])
		if err != nil {
			a.log.Debug().Err(err).Str("trace_id", traceID).Msg("acceptor: engine factory failed")
			continue
		}
		if isNew {
			select {
			case newConns <- conn:
			case <-ctx.Done():
				return ctx.Err()
			}
			go pumpSend(ctx, conn, a.sock)
			go conn.DriveTimers(ctx, defaultTimerTick)
		}

		if _, err := conn.Recv(ctx, buf[:n], RecvInfo{From: from}); err != nil {
			a.log.Debug().Err(err).Str("trace_id", traceID).Msg("acceptor: recv failed")
		}
	}
}

func (a *Acceptor) connFor(traceID string, from net.Addr, datagram []byte) (conn *Conn, isNew bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if conn, ok := a.conns[traceID]; ok {
		return conn, false, nil
	}

	local, err := a.sock.LocalAddr()
	if err != nil {
		return nil, false, err
	}
	engine, err := a.factory(traceID, local, from, datagram)
	if err != nil {
		return nil, false, err
	}

	conn = NewConn(a.flavor, engine, 1, a.log)
	a.conns[traceID] = conn
	return conn, true, nil
}
