//go:build linux

package epollit

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/aio-rt/aio/driver"
)

func toSockaddr(addr net.Addr) (unix.Sockaddr, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		if ip4 := a.IP.To4(); ip4 != nil {
			var sa unix.SockaddrInet4
			sa.Port = a.Port
			copy(sa.Addr[:], ip4)
			return &sa, nil
		}
		var sa unix.SockaddrInet6
		sa.Port = a.Port
		copy(sa.Addr[:], a.IP.To16())
		return &sa, nil
	case *net.UDPAddr:
		if ip4 := a.IP.To4(); ip4 != nil {
			var sa unix.SockaddrInet4
			sa.Port = a.Port
			copy(sa.Addr[:], ip4)
			return &sa, nil
		}
		var sa unix.SockaddrInet6
		sa.Port = a.Port
		copy(sa.Addr[:], a.IP.To16())
		return &sa, nil
	default:
		return nil, driver.ErrInvalidInput
	}
}

func fromSockaddrTCP(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), s.Addr[:]...), Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), s.Addr[:]...), Port: s.Port}
	default:
		return nil
	}
}

func fromSockaddrUDP(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: append([]byte(nil), s.Addr[:]...), Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: append([]byte(nil), s.Addr[:]...), Port: s.Port}
	default:
		return nil
	}
}
