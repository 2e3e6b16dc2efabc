package mockdriver

import (
	"net"
	"time"

	"github.com/aio-rt/aio/driver"
)

func firstAddr(addrs []net.Addr) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].String()
}

func (d *Driver) cntlBind(st *handleState, h driver.Handle, cmd driver.BindCmd) (driver.Result, error) {
	addr := firstAddr(cmd.Addrs)

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.desc {
	case driver.TcpListener:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		st.listener = ln
	case driver.UdpSocket:
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		st.pconn = pc
	default:
		return driver.Result{}, driver.ErrInvalidInput
	}
	return driver.UnitResult(), nil
}

func (d *Driver) cntlConnect(st *handleState, h driver.Handle, cmd driver.ConnectCmd) (driver.Result, error) {
	if st.desc != driver.TcpStream {
		return driver.Result{}, driver.ErrInvalidInput
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	conn, err := net.Dial("tcp", firstAddr(cmd.Addrs))
	if err != nil {
		return driver.Result{}, mapNetError(err)
	}
	st.conn = conn
	return driver.UnitResult(), nil
}

func (d *Driver) cntlAccept(st *handleState, h driver.Handle, cmd driver.AcceptCmd) (driver.Result, error) {
	st.mu.Lock()
	if st.listener == nil {
		st.mu.Unlock()
		return driver.Result{}, driver.ErrInvalidInput
	}
	if pend, ok := d.takePendingAccept(h.Token); ok {
		st.mu.Unlock()
		if pend.err != nil {
			return driver.Result{}, mapNetError(pend.err)
		}
		return driver.IncomingResult(pend.handle, pend.addr), nil
	}
	if st.acceptInFlight {
		st.mu.Unlock()
		return driver.Result{}, driver.ErrWouldBlock
	}
	ln := st.listener
	st.acceptInFlight = true
	st.mu.Unlock()

	go func() {
		conn, err := ln.Accept()

		st.mu.Lock()
		st.acceptInFlight = false
		st.mu.Unlock()

		var pend pendingIncoming
		pend.err = err
		if err == nil {
			newTok := driver.NextToken()
			pend.handle = driver.Handle{Desc: driver.TcpStream, Token: newTok}
			pend.addr = conn.RemoteAddr()
			d.mu.Lock()
			d.handles[newTok] = &handleState{desc: driver.TcpStream, conn: conn}
			d.mu.Unlock()
		}
		d.storePendingAccept(h.Token, pend)
		cmd.Waker.Wake()
	}()
	return driver.Result{}, driver.ErrWouldBlock
}

type pendingIncoming struct {
	handle driver.Handle
	addr   net.Addr
	err    error
}

func (d *Driver) cntlRead(st *handleState, h driver.Handle, cmd driver.ReadCmd) (driver.Result, error) {
	if st.conn == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}
	if len(cmd.Buf) == 0 {
		return driver.DataResult(0), nil
	}

	st.mu.Lock()
	if d.hasPendingRead(h.Token) {
		n, err := d.takePendingRead(h.Token)
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, err
		}
		return driver.DataResult(n), nil
	}
	if st.readInFlight {
		st.mu.Unlock()
		return driver.Result{}, driver.ErrWouldBlock
	}
	conn := st.conn
	st.readInFlight = true
	st.mu.Unlock()

	_ = conn.SetReadDeadline(time.Now())
	n, err := conn.Read(cmd.Buf)
	_ = conn.SetReadDeadline(time.Time{})

	if err == nil || !isTimeout(err) {
		st.mu.Lock()
		st.readInFlight = false
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		return driver.DataResult(n), nil
	}

	go func() {
		rn, rerr := conn.Read(cmd.Buf)
		d.storePendingRead(h.Token, rn, rerr)
		st.mu.Lock()
		st.readInFlight = false
		st.mu.Unlock()
		cmd.Waker.Wake()
	}()
	return driver.Result{}, driver.ErrWouldBlock
}

func (d *Driver) cntlWrite(st *handleState, h driver.Handle, cmd driver.WriteCmd) (driver.Result, error) {
	if st.conn == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}
	if len(cmd.Buf) == 0 {
		return driver.DataResult(0), nil
	}

	st.mu.Lock()
	if d.hasPendingWrite(h.Token) {
		n, err := d.takePendingWrite(h.Token)
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, err
		}
		return driver.DataResult(n), nil
	}
	if st.writeInFlight {
		st.mu.Unlock()
		return driver.Result{}, driver.ErrWouldBlock
	}
	conn := st.conn
	st.writeInFlight = true
	st.mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now())
	n, err := conn.Write(cmd.Buf)
	_ = conn.SetWriteDeadline(time.Time{})

	if err == nil || !isTimeout(err) {
		st.mu.Lock()
		st.writeInFlight = false
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		return driver.DataResult(n), nil
	}

	go func() {
		wn, werr := conn.Write(cmd.Buf)
		d.storePendingWrite(h.Token, wn, werr)
		st.mu.Lock()
		st.writeInFlight = false
		st.mu.Unlock()
		cmd.Waker.Wake()
	}()
	return driver.Result{}, driver.ErrWouldBlock
}

func (d *Driver) cntlSendTo(st *handleState, h driver.Handle, cmd driver.SendToCmd) (driver.Result, error) {
	if st.pconn == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}
	n, err := st.pconn.WriteTo(cmd.Buf, cmd.Addr)
	if err != nil {
		return driver.Result{}, mapNetError(err)
	}
	return driver.DataResult(n), nil
}

func (d *Driver) cntlRecvFrom(st *handleState, h driver.Handle, cmd driver.RecvFromCmd) (driver.Result, error) {
	if st.pconn == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}

	st.mu.Lock()
	if d.hasPendingRecvFrom(h.Token) {
		n, addr, err := d.takePendingRecvFrom(h.Token)
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, err
		}
		return driver.RecvFromResult(n, addr), nil
	}
	if st.readInFlight {
		st.mu.Unlock()
		return driver.Result{}, driver.ErrWouldBlock
	}
	pc := st.pconn
	st.readInFlight = true
	st.mu.Unlock()

	_ = pc.SetReadDeadline(time.Now())
	n, addr, err := pc.ReadFrom(cmd.Buf)
	_ = pc.SetReadDeadline(time.Time{})

	if err == nil || !isTimeout(err) {
		st.mu.Lock()
		st.readInFlight = false
		st.mu.Unlock()
		if err != nil {
			return driver.Result{}, mapNetError(err)
		}
		return driver.RecvFromResult(n, addr), nil
	}

	go func() {
		rn, raddr, rerr := pc.ReadFrom(cmd.Buf)
		d.storePendingRecvFrom(h.Token, rn, raddr, rerr)
		st.mu.Lock()
		st.readInFlight = false
		st.mu.Unlock()
		cmd.Waker.Wake()
	}()
	return driver.Result{}, driver.ErrWouldBlock
}

func (d *Driver) cntlShutdown(st *handleState, cmd driver.ShutdownCmd) (driver.Result, error) {
	if st.conn == nil {
		return driver.Result{}, driver.ErrInvalidInput
	}
	type halfCloser interface {
		CloseRead() error
		CloseWrite() error
	}
	hc, ok := st.conn.(halfCloser)
	if !ok {
		return driver.UnitResult(), nil
	}
	var err error
	switch cmd.How {
	case driver.ShutdownRead:
		err = hc.CloseRead()
	case driver.ShutdownWrite:
		err = hc.CloseWrite()
	case driver.ShutdownBoth:
		_ = hc.CloseRead()
		err = hc.CloseWrite()
	}
	if err != nil {
		return driver.Result{}, mapNetError(err)
	}
	return driver.UnitResult(), nil
}

func (d *Driver) cntlLocalAddr(st *handleState) (driver.Result, error) {
	switch {
	case st.listener != nil:
		return driver.AddrResult(st.listener.Addr()), nil
	case st.conn != nil:
		return driver.AddrResult(st.conn.LocalAddr()), nil
	case st.pconn != nil:
		return driver.AddrResult(st.pconn.LocalAddr()), nil
	default:
		return driver.Result{}, driver.ErrNotConnected
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func mapNetError(err error) error {
	if err == nil {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return driver.ErrWouldBlock
	}
	switch {
	case isAddrInUse(err):
		return driver.ErrAddrInUse
	case isConnRefused(err):
		return driver.ErrConnectionRefused
	case isConnReset(err):
		return driver.ErrConnectionReset
	case isEOF(err):
		return driver.ErrBrokenPipe
	default:
		return err
	}
}
