package mockdriver

import "github.com/aio-rt/aio/driver"

// FDCntl is the sole control channel: every read, write, registration,
// and timer arm flows through here, dispatched by a type switch rather
// than virtual calls (see DESIGN NOTES §9 "Dynamic dispatch").
func (d *Driver) FDCntl(h driver.Handle, cmd driver.Cmd) (driver.Result, error) {
	if cmd, ok := cmd.(driver.PollOnceCmd); ok {
		return d.cntlPollOnce(cmd)
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
		return d.cntlRegister(st, c)
	case driver.ReregisterCmd:
		return d.cntlReregister(st, c)
	case driver.DeregisterCmd:
		return d.cntlDeregister(st)
	case driver.TimerArmCmd:
		return d.cntlTimerArm(st, h, c)
	default:
		return driver.Result{}, driver.ErrInvalidInput
	}
}
