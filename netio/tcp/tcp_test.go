package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver/mockdriver"
)

func TestDialListenEcho(t *testing.T) {
	drv := mockdriver.New(zerolog.Nop(), time.Millisecond)

	ln, err := Listen(drv, "127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	addr, err := ln.Addr()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan *Stream, 1)
	go func() {
		s, _, err := ln.Accept(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		accepted <- s
	}()

	client, err := Dial(ctx, drv, addr.String(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	if _, err := client.Write(ctx, []byte("hello")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 5)
	n, err := server.Read(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("expected hello, got %q", buf[:n])
	}
}

func TestWriteRetriesUntilFullyFlushed(t *testing.T) {
	drv := mockdriver.New(zerolog.Nop(), time.Millisecond)

	ln, err := Listen(drv, "127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	addr, _ := ln.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan *Stream, 1)
	go func() {
		s, _, err := ln.Accept(ctx)
		if err == nil {
			accepted <- s
		}
	}()

	client, err := Dial(ctx, drv, addr.String(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	server := <-accepted
	defer server.Close()

	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	done := make(chan error, 1)
	go func() {
		_, err := client.Write(ctx, payload)
		done <- err
	}()

	received := 0
	buf := make([]byte, 4096)
	for received < len(payload) {
		n, err := server.Read(ctx, buf)
		if err != nil {
			t.Fatal(err)
		}
		received += n
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
