package quicio

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/netio/udp"
	"github.com/aio-rt/aio/syncutil"
)

// ClientEngineFactory constructs the Engine for an outbound connection
// from local to remote, given the trace id the caller chose for it
// (e.g. a connection id the factory also seeds the engine with).
type ClientEngineFactory func(traceID string, local, remote net.Addr) (Engine, error)

// Connector drives the client side of a handshake: it builds an Engine
// via factory bound to sock, sends the first flight, and returns a Conn
// the caller then pumps with Pump.
type Connector struct {
	sock   *udp.Socket
	flavor syncutil.Flavor
	log    zerolog.Logger
}

// NewConnector binds a Connector to sock. flavor is passed through to
// every Conn it builds — see NewConn.
func NewConnector(sock *udp.Socket, flavor syncutil.Flavor, log zerolog.Logger) *Connector {
	return &Connector{sock: sock, flavor: flavor, log: log}
}

// Connect builds the Engine and transmits its first flight. The
// returned Conn still needs Pump and DriveTimers running against it to
// make further progress.
func (c *Connector) Connect(ctx context.Context, traceID string, remote net.Addr, factory ClientEngineFactory) (*Conn, error) {
	local, err := c.sock.LocalAddr()
	if err != nil {
		return nil, err
	}

	engine, err := factory(traceID, local, remote)
	if err != nil {
		return nil, err
	}
	conn := NewConn(c.flavor, engine, 0, c.log)

	buf := make([]byte, 65535)
	n, info, err := conn.Send(ctx, buf)
	if err != nil {
		return nil, err
	}
	if _, err := c.sock.SendTo(ctx, buf[:n], info.To); err != nil {
		return nil, err
	}

	return conn, nil
}

// pumpSend loops conn.Send, transmitting every outgoing datagram over
// sock, until ctx is cancelled or conn reports a terminal error.
func pumpSend(ctx context.Context, conn *Conn, sock *udp.Socket) error {
	buf := make([]byte, 65535)
	for {
		n, info, err := conn.Send(ctx, buf)
		if err != nil {
			return err
		}
		if _, err := sock.SendTo(ctx, buf[:n], info.To); err != nil {
			return err
		}
	}
}

// Pump runs both halves of the datagram pump for a connection that owns
// sock exclusively (the client 1:1 case). Server-side code that
// demultiplexes one shared socket across many Conns should call
// pumpSend per connection directly instead — see Acceptor.Serve.
func Pump(ctx context.Context, conn *Conn, sock *udp.Socket) error {
	errCh := make(chan error, 2)

	go func() {
		buf := make([]byte, 65535)
		for {
			n, from, err := sock.RecvFrom(ctx, buf)
			if err != nil {
				errCh <- err
				return
			}
			if _, err := conn.Recv(ctx, buf[:n], RecvInfo{From: from}); err != nil {
				errCh <- err
				return
			}
		}
	}()

	go func() { errCh <- pumpSend(ctx, conn, sock) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
