// Package tcp adapts driver.Driver's TcpListener/TcpStream handles into
// the synchronous-looking, cancellable API shape the rest of the stack
// uses, the way socket515-gaio's Watcher wraps raw net.Conn operations
// behind ReadTimeout/WriteTimeout plus the completion channel. Every
// blocking call here is reactor.Await over one driver Cmd.
package tcp

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/internal/ioerr"
	"github.com/aio-rt/aio/reactor"
)

// Listener is a bound, listening TCP socket.
type Listener struct {
	drv    driver.Driver
	handle driver.Handle
	log    zerolog.Logger
}

// Listen opens, binds, and registers a TcpListener handle against drv.
func Listen(drv driver.Driver, addr string, log zerolog.Logger) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	h, err := drv.FDOpen(driver.TcpListener, driver.NoFlags{})
	if err != nil {
		return nil, err
	}
	if _, err := drv.FDCntl(h, driver.BindCmd{Addrs: []net.Addr{tcpAddr}}); err != nil {
		drv.FDClose(h)
		return nil, err
	}
	if err := registerIfPossible(drv, h, driver.Readable); err != nil {
		drv.FDClose(h)
		return nil, err
	}

	return &Listener{drv: drv, handle: h, log: log}, nil
}

// Addr returns the listener's bound local address.
func (l *Listener) Addr() (net.Addr, error) {
	res, err := l.drv.FDCntl(l.handle, driver.LocalAddrCmd{})
	if err != nil {
		return nil, err
	}
	return res.TryAddr()
}

// Accept waits for and returns the next inbound connection.
func (l *Listener) Accept(ctx context.Context) (*Stream, net.Addr, error) {
	type incoming struct {
		h    driver.Handle
		addr net.Addr
	}
	v, err := reactor.Await(ctx, func(w *reactor.Waker) (incoming, error) {
		res, err := l.drv.FDCntl(l.handle, driver.AcceptCmd{Waker: w})
		if err != nil {
			return incoming{}, err
		}
		h, addr, err := res.TryIncoming()
		return incoming{h: h, addr: addr}, err
	})
	if err != nil {
		return nil, nil, err
	}

	if err := registerIfPossible(l.drv, v.h, driver.Readable|driver.Writable); err != nil {
		l.drv.FDClose(v.h)
		return nil, nil, err
	}
	return &Stream{drv: l.drv, handle: v.h, log: l.log}, v.addr, nil
}

// Close deregisters and releases the listening socket.
func (l *Listener) Close() error {
	deregisterIfPossible(l.drv, l.handle)
	return l.drv.FDClose(l.handle)
}

// Stream is a connected TCP socket.
type Stream struct {
	drv    driver.Driver
	handle driver.Handle
	log    zerolog.Logger
}

// Dial opens, connects, and registers a TcpStream handle against drv.
func Dial(ctx context.Context, drv driver.Driver, addr string, log zerolog.Logger) (*Stream, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	h, err := drv.FDOpen(driver.TcpStream, driver.NoFlags{})
	if err != nil {
		return nil, err
	}
	if _, err := drv.FDCntl(h, driver.ConnectCmd{Addrs: []net.Addr{tcpAddr}}); err != nil {
		drv.FDClose(h)
		return nil, err
	}
	if err := registerIfPossible(drv, h, driver.Readable|driver.Writable); err != nil {
		drv.FDClose(h)
		return nil, err
	}

	return &Stream{drv: drv, handle: h, log: log}, nil
}

// Read fills buf with at least one byte, or blocks until data, EOF, or
// ctx cancellation.
func (s *Stream) Read(ctx context.Context, buf []byte) (int, error) {
	return reactor.Await(ctx, func(w *reactor.Waker) (int, error) {
		res, err := s.drv.FDCntl(s.handle, driver.ReadCmd{Waker: w, Buf: buf})
		if err != nil {
			return 0, err
		}
		return res.TryDataLen()
	})
}

// Write writes all of buf, blocking as needed until ctx cancellation.
func (s *Stream) Write(ctx context.Context, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := reactor.Await(ctx, func(w *reactor.Waker) (int, error) {
			res, err := s.drv.FDCntl(s.handle, driver.WriteCmd{Waker: w, Buf: buf[written:]})
			if err != nil {
				return 0, err
			}
			return res.TryDataLen()
		})
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
	}
	return written, nil
}

// Shutdown half- or fully-closes the connection without releasing the
// handle; a subsequent Close is still required.
func (s *Stream) Shutdown(how driver.Shutdown) error {
	_, err := s.drv.FDCntl(s.handle, driver.ShutdownCmd{How: how})
	return err
}

// Close deregisters and releases the stream. An FDClose failure is
// logged and returned, never turned into a panic; see the close-failure
// decision in DESIGN.md.
func (s *Stream) Close() error {
	deregisterIfPossible(s.drv, s.handle)
	if err := s.drv.FDClose(s.handle); err != nil {
		if ioerr.ShouldLogAsError(err) {
			s.log.Error().Err(err).Stringer("handle", s.handle).Msg("tcp stream close failed")
		}
		return err
	}
	return nil
}

// registerIfPossible registers h with drv for the given interests. Every
// driver in this module tracks registration state even when it isn't
// needed to make progress (driver/mockdriver completes via background
// goroutines instead of epoll), so this is just a thin FDCntl wrapper.
func registerIfPossible(drv driver.Driver, h driver.Handle, interests driver.Interest) error {
	_, err := drv.FDCntl(h, driver.RegisterCmd{Source: h, Interests: interests})
	return err
}

func deregisterIfPossible(drv driver.Driver, h driver.Handle) {
	drv.FDCntl(h, driver.DeregisterCmd{Source: h})
}
