//go:build linux

package epollit

import "github.com/aio-rt/aio/driver"

// FDCntl dispatches every command by type switch, mirroring
// mockdriver.Driver.FDCntl's shape so the two drivers stay
// interchangeable behind the driver.Driver interface.
func (d *Driver) FDCntl(h driver.Handle, cmd driver.Cmd) (driver.Result, error) {
	if c, ok := cmd.(driver.PollOnceCmd); ok {
		return d.cntlPollOnce(c)
	}

	st, err := d.lookup(h)
	if err != nil {
		return driver.Result{}, err
	}

	switch c := cmd.(type) {
	case driver.BindCmd:
		return d.cntlBind(st, h, c)
	case driver.ConnectCmd:
		return d.cntlConnect(st, h, c)
	case driver.AcceptCmd:
		return d.cntlAccept(st, h, c)
	case driver.ReadCmd:
		return d.cntlRead(st, h, c)
	case driver.WriteCmd:
		return d.cntlWrite(st, h, c)
	case driver.SendToCmd:
		return d.cntlSendTo(st, h, c)
	case driver.RecvFromCmd:
		return d.cntlRecvFrom(st, h, c)
	case driver.ShutdownCmd:
		return d.cntlShutdown(st, c)
	case driver.LocalAddrCmd:
		return d.cntlLocalAddr(st)
	case driver.RegisterCmd:
		return d.cntlRegister(st, h, c)
	case driver.ReregisterCmd:
		return d.cntlReregister(st, h, c)
	case driver.DeregisterCmd:
		return d.cntlDeregister(st, h)
	case driver.TimerArmCmd:
		return d.cntlTimerArm(st, h, c)
	default:
		return driver.Result{}, driver.ErrInvalidInput
	}
}
