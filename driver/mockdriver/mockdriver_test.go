package mockdriver

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver"
)

func newTestDriver() *Driver {
	return New(zerolog.Nop(), time.Millisecond)
}

func TestTcpEchoScenario(t *testing.T) {
	d := newTestDriver()

	ln, err := d.FDOpen(driver.TcpListener, driver.NoFlags{})
	if err != nil {
		t.Fatal(err)
	}
	laddr, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if _, err := d.FDCntl(ln, driver.BindCmd{Addrs: []net.Addr{laddr}}); err != nil {
		t.Fatal(err)
	}

	addrResult, err := d.FDCntl(ln, driver.LocalAddrCmd{})
	if err != nil {
		t.Fatal(err)
	}
	boundAddr, err := addrResult.TryAddr()
	if err != nil {
		t.Fatal(err)
	}

	accepted := make(chan driver.Handle, 1)
	go func() {
		for {
			res, err := d.FDCntl(ln, driver.AcceptCmd{Waker: noopWaker{}})
			if err == driver.ErrWouldBlock {
				time.Sleep(time.Millisecond)
				continue
			}
			if err != nil {
				t.Error(err)
				return
			}
			h, _, err := res.TryIncoming()
			if err != nil {
				t.Error(err)
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

	serverConn := <-accepted

	for {
		_, err := d.FDCntl(client, driver.WriteCmd{Waker: noopWaker{}, Buf: []byte("ping")})
		if err == driver.ErrWouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		break
	}

	buf := make([]byte, 4)
	var n int
	for {
		res, err := d.FDCntl(serverConn, driver.ReadCmd{Waker: noopWaker{}, Buf: buf})
		if err == driver.ErrWouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		n, err = res.TryDataLen()
		if err != nil {
			t.Fatal(err)
		}
		break
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("expected ping, got %q", buf[:n])
	}
}

func TestZeroLengthWriteIsNoop(t *testing.T) {
	d := newTestDriver()
	ln, _ := d.FDOpen(driver.TcpListener, driver.NoFlags{})
	laddr, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if _, err := d.FDCntl(ln, driver.BindCmd{Addrs: []net.Addr{laddr}}); err != nil {
		t.Fatal(err)
	}
	addrResult, _ := d.FDCntl(ln, driver.LocalAddrCmd{})
	boundAddr, _ := addrResult.TryAddr()

	client, _ := d.FDOpen(driver.TcpStream, driver.NoFlags{})
	if _, err := d.FDCntl(client, driver.ConnectCmd{Addrs: []net.Addr{boundAddr}}); err != nil {
		t.Fatal(err)
	}

	res, err := d.FDCntl(client, driver.WriteCmd{Waker: noopWaker{}, Buf: nil})
	if err != nil {
		t.Fatal(err)
	}
	n, err := res.TryDataLen()
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestTimerExpiryWithinWindow(t *testing.T) {
	d := New(zerolog.Nop(), time.Millisecond)

	th, err := d.FDOpen(driver.Timeout, driver.NoFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.FDCntl(th, driver.TimerArmCmd{Duration: 20 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	var found bool
	for i := 0; i < 40; i++ {
		res, err := d.FDCntl(th, driver.PollOnceCmd{})
		if err != nil {
			t.Fatal(err)
		}
		evts, _ := res.TryEvents()
		for _, e := range evts {
			if e.Token == th.Token {
				if e.Interest != driver.Readable {
					t.Fatalf("expected Readable interest, got %v", e.Interest)
				}
				found = true
			}
		}
		if found {
			break
		}
	}
	elapsed := time.Since(start)
	if !found {
		t.Fatal("timer never expired")
	}
	if elapsed < 20*time.Millisecond {
		t.Fatalf("timer fired too early: %v", elapsed)
	}
}

type noopWaker struct{}

func (noopWaker) Wake() {}
