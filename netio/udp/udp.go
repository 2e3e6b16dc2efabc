// Package udp adapts driver.Driver's UdpSocket handle into a
// cancellable SendTo/RecvFrom API, the datagram counterpart of netio/tcp.
package udp

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/internal/ioerr"
	"github.com/aio-rt/aio/reactor"
)

// Socket is a bound UDP socket.
type Socket struct {
	drv    driver.Driver
	handle driver.Handle
	log    zerolog.Logger
}

// Bind opens, binds, and registers a UdpSocket handle against drv.
func Bind(drv driver.Driver, addr string, log zerolog.Logger) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	h, err := drv.FDOpen(driver.UdpSocket, driver.NoFlags{})
	if err != nil {
		return nil, err
	}
	if _, err := drv.FDCntl(h, driver.BindCmd{Addrs: []net.Addr{udpAddr}}); err != nil {
		drv.FDClose(h)
		return nil, err
	}
	if _, err := drv.FDCntl(h, driver.RegisterCmd{Source: h, Interests: driver.Readable | driver.Writable}); err != nil {
		drv.FDClose(h)
		return nil, err
	}

	return &Socket{drv: drv, handle: h, log: log}, nil
}

// LocalAddr returns the socket's bound local address.
func (s *Socket) LocalAddr() (net.Addr, error) {
	res, err := s.drv.FDCntl(s.handle, driver.LocalAddrCmd{})
	if err != nil {
		return nil, err
	}
	return res.TryAddr()
}

// SendTo sends buf as a single datagram to addr.
func (s *Socket) SendTo(ctx context.Context, buf []byte, addr net.Addr) (int, error) {
	return reactor.Await(ctx, func(w *reactor.Waker) (int, error) {
		res, err := s.drv.FDCntl(s.handle, driver.SendToCmd{Waker: w, Buf: buf, Addr: addr})
		if err != nil {
			return 0, err
		}
		return res.TryDataLen()
	})
}

// RecvFrom reads one datagram into buf and reports its sender.
func (s *Socket) RecvFrom(ctx context.Context, buf []byte) (int, net.Addr, error) {
	type result struct {
		n    int
		addr net.Addr
	}
	r, err := reactor.Await(ctx, func(w *reactor.Waker) (result, error) {
		res, err := s.drv.FDCntl(s.handle, driver.RecvFromCmd{Waker: w, Buf: buf})
		if err != nil {
			return result{}, err
		}
		n, addr, err := res.TryRecvFrom()
		return result{n: n, addr: addr}, err
	})
	return r.n, r.addr, err
}

// Close deregisters and releases the socket.
func (s *Socket) Close() error {
	s.drv.FDCntl(s.handle, driver.DeregisterCmd{Source: s.handle})
	if err := s.drv.FDClose(s.handle); err != nil {
		if ioerr.ShouldLogAsError(err) {
			s.log.Error().Err(err).Stringer("handle", s.handle).Msg("udp socket close failed")
		}
		return err
	}
	return nil
}
