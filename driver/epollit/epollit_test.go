//go:build linux

package epollit

import (
	"net"
	"testing"
	"time"

	"github.com/aio-rt/aio/driver"
)

type testWaker struct{ ch chan struct{} }

func newTestWaker() *testWaker   { return &testWaker{ch: make(chan struct{})} }
func (w *testWaker) Wake()       { close(w.ch) }
func (w *testWaker) wait() error {
	select {
	case <-w.ch:
		return nil
	case <-time.After(2 * time.Second):
		return errTimedOut
	}
}

var errTimedOut = errTimeout{}

type errTimeout struct{}

func (errTimeout) Error() string { return "test waker timed out" }

func TestTcpEchoScenario(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	ln, err := d.FDOpen(driver.TcpListener, driver.NoFlags{})
	if err != nil {
		t.Fatal(err)
	}
	laddr, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if _, err := d.FDCntl(ln, driver.BindCmd{Addrs: []net.Addr{laddr}}); err != nil {
		t.Fatal(err)
	}

	addrRes, err := d.FDCntl(ln, driver.LocalAddrCmd{})
	if err != nil {
		t.Fatal(err)
	}
	boundAddr, err := addrRes.TryAddr()
	if err != nil {
		t.Fatal(err)
	}

	accepted := make(chan driver.Handle, 1)
	go func() {
		for {
			res, err := d.FDCntl(ln, driver.AcceptCmd{Waker: newTestWaker()})
			if err == driver.ErrWouldBlock {
				time.Sleep(time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			h, _, err := res.TryIncoming()
			if err != nil {
				return
			}
			accepted <- h
			return
		}
	}()

	client, err := d.FDOpen(driver.TcpStream, driver.NoFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.FDCntl(client, driver.ConnectCmd{Addrs: []net.Addr{boundAddr}}); err != nil {
		t.Fatal(err)
	}

	var serverConn driver.Handle
	select {
	case serverConn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("accept never completed")
	}

	for {
		if _, err := d.FDCntl(client, driver.WriteCmd{Waker: newTestWaker(), Buf: []byte("ping")}); err != driver.ErrWouldBlock {
			if err != nil {
				t.Fatal(err)
			}
			break
		}
		time.Sleep(time.Millisecond)
	}

	buf := make([]byte, 4)
	var n int
	for {
		res, err := d.FDCntl(serverConn, driver.ReadCmd{Waker: newTestWaker(), Buf: buf})
		if err == driver.ErrWouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		n, _ = res.TryDataLen()
		break
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("expected ping, got %q", buf[:n])
	}
}

func TestTimerExpiryWithinWindow(t *testing.T) {
	d, err := New(WithTick(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	th, err := d.FDOpen(driver.Timeout, driver.NoFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.FDCntl(th, driver.TimerArmCmd{Duration: 20 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	var found bool
	for i := 0; i < 200; i++ {
		res, err := d.FDCntl(th, driver.PollOnceCmd{})
		if err != nil {
			t.Fatal(err)
		}
		evts, _ := res.TryEvents()
		for _, e := range evts {
			if e.Token == th.Token {
				found = true
			}
		}
		if found {
			break
		}
	}
	if !found {
		t.Fatal("timer never expired")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("timer fired too early")
	}
}
