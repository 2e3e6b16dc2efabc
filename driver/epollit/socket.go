//go:build linux

package epollit

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/aio-rt/aio/driver"
)

func firstAddr(addrs []net.Addr) net.Addr {
	if len(addrs) == 0 {
		return nil
	}
	return addrs[0]
}

// dupFD clones the raw descriptor out of a stdlib net object (its
// callers then close the original), the same handoff
// socket515-gaio/watcher.go performs in
// handlePending: it calls dupconn(pcb.conn) to take the fd for itself,
// closes pcb.conn, then hands the duplicated fd to its own poller via
// w.pfd.Watch(ident). dupFD plays dupconn's role here, using
// SyscallConn+unix.Dup since the platform-specific dupconn body isn't
// part of this retrieval.
func dupFD(sc interface{ SyscallConn() (syscall.RawConn, error) }) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var newFD int
	var ctlErr error
	err = raw.Control(func(fd uintptr) {
		newFD, ctlErr = unix.Dup(int(fd))
	})
	if err != nil {
		return -1, err
	}
	if ctlErr != nil {
		return -1, ctlErr
	}
	if err := unix.SetNonblock(newFD, true); err != nil {
		unix.Close(newFD)
		return -1, err
	}
	return newFD, nil
}

func (d *Driver) cntlBind(st *handleState, h driver.Handle, cmd driver.BindCmd) (driver.Result, error) {
	addr := firstAddr(cmd.Addrs)
	if addr == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.desc {
	case driver.TcpListener:
		ln, err := net.Listen("tcp", addr.String())
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		fd, err := dupFD(ln.(*net.TCPListener))
		ln.Close()
		if err != nil {
			return driver.Result{}, err
		}
		st.fd = fd
		return driver.UnitResult(), nil
	case driver.UdpSocket:
		pc, err := net.ListenPacket("udp", addr.String())
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		fd, err := dupFD(pc.(*net.UDPConn))
		pc.Close()
		if err != nil {
			return driver.Result{}, err
		}
		st.fd = fd
		return driver.UnitResult(), nil
	default:
		return driver.Result{}, driver.ErrInvalidInput
	}
}

// cntlConnect dials synchronously (net.Dial blocks the caller until the
// connection is established or fails) and dups the resulting fd.
func (d *Driver) cntlConnect(st *handleState, h driver.Handle, cmd driver.ConnectCmd) (driver.Result, error) {
	addr := firstAddr(cmd.Addrs)
	if addr == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}
	if st.desc != driver.TcpStream {
		return driver.Result{}, driver.ErrInvalidInput
	}

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		return driver.Result{}, mapNetError(err)
	}
	fd, err := dupFD(conn.(*net.TCPConn))
	conn.Close()
	if err != nil {
		return driver.Result{}, err
	}

	st.mu.Lock()
	st.fd = fd
	st.mu.Unlock()
	return driver.UnitResult(), nil
}

func (d *Driver) cntlAccept(st *handleState, h driver.Handle, cmd driver.AcceptCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrInvalidInput
	}

	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		if err == unix.EAGAIN {
			st.mu.Lock()
			st.acceptWaker = cmd.Waker
			st.mu.Unlock()
			return driver.Result{}, driver.ErrWouldBlock
		}
		return driver.Result{}, mapErrno(err)
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return driver.Result{}, err
	}

	nh, err := d.FDOpen(driver.TcpStream, driver.NoFlags{})
	if err != nil {
		unix.Close(nfd)
		return driver.Result{}, err
	}
	nst, _ := d.lookup(nh)
	nst.mu.Lock()
	nst.fd = nfd
	nst.mu.Unlock()

	return driver.IncomingResult(nh, fromSockaddrTCP(sa)), nil
}

func (d *Driver) cntlRead(st *handleState, h driver.Handle, cmd driver.ReadCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}
	if len(cmd.Buf) == 0 {
		return driver.DataResult(0), nil
	}

	n, err := unix.Read(fd, cmd.Buf)
	if err != nil {
		if err == unix.EAGAIN {
			st.mu.Lock()
			st.readWaker = cmd.Waker
			st.mu.Unlock()
			return driver.Result{}, driver.ErrWouldBlock
		}
		return driver.Result{}, mapErrno(err)
	}
	if n == 0 {
		return driver.Result{}, driver.ErrBrokenPipe
	}
	return driver.DataResult(n), nil
}

func (d *Driver) cntlWrite(st *handleState, h driver.Handle, cmd driver.WriteCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}
	if len(cmd.Buf) == 0 {
		return driver.DataResult(0), nil
	}

	n, err := unix.Write(fd, cmd.Buf)
	if err != nil {
		if err == unix.EAGAIN {
			st.mu.Lock()
			st.writeWaker = cmd.Waker
			st.mu.Unlock()
			return driver.Result{}, driver.ErrWouldBlock
		}
		return driver.Result{}, mapErrno(err)
	}
	return driver.DataResult(n), nil
}

func (d *Driver) cntlSendTo(st *handleState, h driver.Handle, cmd driver.SendToCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}

	sa, err := toSockaddr(cmd.Addr)
	if err != nil {
		return driver.Result{}, err
	}
	if err := unix.Sendto(fd, cmd.Buf, 0, sa); err != nil {
		if err == unix.EAGAIN {
			st.mu.Lock()
			st.writeWaker = cmd.Waker
			st.mu.Unlock()
			return driver.Result{}, driver.ErrWouldBlock
		}
		return driver.Result{}, mapErrno(err)
	}
	return driver.DataResult(len(cmd.Buf)), nil
}

func (d *Driver) cntlRecvFrom(st *handleState, h driver.Handle, cmd driver.RecvFromCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}

	n, sa, err := unix.Recvfrom(fd, cmd.Buf, 0)
	if err != nil {
		if err == unix.EAGAIN {
			st.mu.Lock()
			st.readWaker = cmd.Waker
			st.mu.Unlock()
			return driver.Result{}, driver.ErrWouldBlock
		}
		return driver.Result{}, mapErrno(err)
	}
	return driver.RecvFromResult(n, fromSockaddrUDP(sa)), nil
}

func (d *Driver) cntlShutdown(st *handleState, cmd driver.ShutdownCmd) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}

	var how int
	switch cmd.How {
	case driver.ShutdownRead:
		how = unix.SHUT_RD
	case driver.ShutdownWrite:
		how = unix.SHUT_WR
	default:
		how = unix.SHUT_RDWR
	}
	if err := unix.Shutdown(fd, how); err != nil {
		return driver.Result{}, mapErrno(err)
	}
	return driver.UnitResult(), nil
}

func (d *Driver) cntlLocalAddr(st *handleState) (driver.Result, error) {
	st.mu.Lock()
	fd := st.fd
	desc := st.desc
	st.mu.Unlock()
	if fd < 0 {
		return driver.Result{}, driver.ErrNotConnected
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return driver.Result{}, mapErrno(err)
	}
	if desc == driver.UdpSocket {
		return driver.AddrResult(fromSockaddrUDP(sa)), nil
	}
	return driver.AddrResult(fromSockaddrTCP(sa)), nil
}

func mapErrno(err error) error {
	switch err {
	case unix.ECONNREFUSED:
		return driver.ErrConnectionRefused
	case unix.ECONNRESET:
		return driver.ErrConnectionReset
	case unix.EADDRINUSE:
		return driver.ErrAddrInUse
	case unix.EACCES, unix.EPERM:
		return driver.ErrPermissionDenied
	case unix.EPIPE:
		return driver.ErrBrokenPipe
	default:
		return err
	}
}

func mapNetError(err error) error {
	if err == nil {
		return nil
	}
	if ne, ok := err.(*net.OpError); ok {
		return mapErrno(ne.Err)
	}
	return err
}
