// Package driver defines the handle/command vocabulary that virtualizes
// OS-level I/O resources (sockets, timers, pollers) behind a single
// fd_open/fd_close/fd_cntl surface. Concrete drivers (driver/mockdriver,
// driver/epollit) implement the Driver interface; everything above this
// package — the reactor, the TCP/UDP adapters, the QUIC mediator — only
// ever talks to a Driver, never to the OS directly.
package driver

import (
	"fmt"
	"net"
	"sync/atomic"
)

// Description names the kind of resource a Handle refers to.
type Description int

const (
	// File is an explicit non-goal: the original source left filesystem
	// I/O as a todo!() in every poller arm. Kept as a named description
	// so callers get ErrInvalidInput rather than an unknown-kind panic.
	File Description = iota
	TcpListener
	TcpStream
	UdpSocket
	Timeout
	Poller
)

func (d Description) String() string {
	switch d {
	case File:
		return "File"
	case TcpListener:
		return "TcpListener"
	case TcpStream:
		return "TcpStream"
	case UdpSocket:
		return "UdpSocket"
	case Timeout:
		return "Timeout"
	case Poller:
		return "Poller"
	default:
		return fmt.Sprintf("Description(%d)", int(d))
	}
}

// Token is a process-unique, opaque 64-bit identifier. Drivers key their
// internal handle table by Token only, never by pointer, so the
// driver<->poller<->handle reference cycle never has to be broken by a
// garbage collector.
type Token uint64

var tokenSeed uint64

// NextToken hands out a fresh process-unique token. Drivers that don't
// need a specific numbering scheme can use this directly from FDOpen.
func NextToken() Token {
	return Token(atomic.AddUint64(&tokenSeed, 1))
}

// Handle is an opaque descriptor returned by FDOpen. Ownership transfers
// to whoever holds it; registering a Handle with a poller does not
// transfer ownership away from the original owner.
type Handle struct {
	Desc  Description
	Token Token
}

func (h Handle) String() string {
	return fmt.Sprintf("%s(%d)", h.Desc, h.Token)
}

// Interest is a bitset over the readiness classes the poller reports.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

func (i Interest) Has(o Interest) bool { return i&o == o }

func (i Interest) String() string {
	switch i {
	case 0:
		return "none"
	case Readable:
		return "R"
	case Writable:
		return "W"
	case Readable | Writable:
		return "RW"
	default:
		return fmt.Sprintf("Interest(%d)", uint8(i))
	}
}

// Shutdown mirrors net.Conn shutdown directions.
type Shutdown int

const (
	ShutdownRead Shutdown = iota
	ShutdownWrite
	ShutdownBoth
)

// OpenFlags is the open-time argument slot of FDOpen. Neither driver in
// this module reads it: every caller passes NoFlags, and socket
// addresses are supplied afterwards through BindCmd or ConnectCmd.
type OpenFlags interface {
	isOpenFlags()
}

type BindFlags struct{ Addrs []net.Addr }

func (BindFlags) isOpenFlags() {}

type ConnectFlags struct{ Addrs []net.Addr }

func (ConnectFlags) isOpenFlags() {}

// TimerFlags has no fields: a Timeout handle's duration is set by
// TimerArmCmd, which rejects a zero duration.
type TimerFlags struct{}

func (TimerFlags) isOpenFlags() {}

// NoFlags is used for descriptions that need no open-time arguments
// (e.g. Poller).
type NoFlags struct{}

func (NoFlags) isOpenFlags() {}
