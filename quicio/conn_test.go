package quicio_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/quicio"
	"github.com/aio-rt/aio/quicio/quictest"
	"github.com/aio-rt/aio/syncutil"
)

func TestOpenStreamAcceptRoundTrip(t *testing.T) {
	engA, engB := quictest.NewLoopbackPair("A", "B")
	connA := quicio.NewConn(syncutil.MutexFlavor, engA, 0, zerolog.Nop())
	connB := quicio.NewConn(syncutil.MutexFlavor, engB, 1, zerolog.Nop())
	engA.WireNotify(connA.Poke)
	engB.WireNotify(connB.Poke)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	streamA, err := connA.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if streamA.ID() != 0 {
		t.Fatalf("expected first client stream id 0, got %d", streamA.ID())
	}

	if _, err := streamA.Write(ctx, []byte("hello")); err != nil {
		t.Fatal(err)
	}

	streamB, err := connB.Accept(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if streamB.ID() != streamA.ID() {
		t.Fatalf("expected accepted stream id %d, got %d", streamA.ID(), streamB.ID())
	}

	buf := make([]byte, 5)
	n, fin, err := streamB.Read(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("expected hello, got %q", buf[:n])
	}
	if fin {
		t.Fatal("did not expect fin yet")
	}
}

func TestStreamCloseDeliversFin(t *testing.T) {
	engA, engB := quictest.NewLoopbackPair("A", "B")
	connA := quicio.NewConn(syncutil.MutexFlavor, engA, 0, zerolog.Nop())
	connB := quicio.NewConn(syncutil.MutexFlavor, engB, 1, zerolog.Nop())
	engA.WireNotify(connA.Poke)
	engB.WireNotify(connB.Poke)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	streamA, err := connA.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := streamA.Write(ctx, []byte("ab")); err != nil {
		t.Fatal(err)
	}
	if err := streamA.Close(ctx); err != nil {
		t.Fatal(err)
	}
	// closing twice must not error or hang
	if err := streamA.Close(ctx); err != nil {
		t.Fatal(err)
	}

	streamB, err := connB.Accept(ctx)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 2)
	n, _, err := streamB.Read(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "ab" {
		t.Fatalf("expected ab, got %q", buf[:n])
	}

	buf2 := make([]byte, 1)
	n2, fin2, err := streamB.Read(ctx, buf2)
	if err != nil {
		t.Fatal(err)
	}
	if n2 != 0 || !fin2 {
		t.Fatalf("expected (0, true), got (%d, %v)", n2, fin2)
	}

	if !streamB.Finished() {
		t.Fatal("expected stream finished after fin delivered")
	}
}

func TestOpenStreamIDAllocationIncrementsByFour(t *testing.T) {
	eng, _ := quictest.NewLoopbackPair("A", "B")
	conn := quicio.NewConn(syncutil.MutexFlavor, eng, 0, zerolog.Nop())
	eng.WireNotify(conn.Poke)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := conn.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := conn.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID() != 0 || second.ID() != 4 {
		t.Fatalf("expected ids 0 and 4, got %d and %d", first.ID(), second.ID())
	}
}

func TestStreamRecvBlocksUntilDataArrives(t *testing.T) {
	engA, engB := quictest.NewLoopbackPair("A", "B")
	connA := quicio.NewConn(syncutil.MutexFlavor, engA, 0, zerolog.Nop())
	connB := quicio.NewConn(syncutil.MutexFlavor, engB, 1, zerolog.Nop())
	engA.WireNotify(connA.Poke)
	engB.WireNotify(connB.Poke)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	streamA, err := connA.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}

	readDone := make(chan string, 1)
	go func() {
		streamB, err := connB.Accept(ctx)
		if err != nil {
			return
		}
		buf := make([]byte, 16)
		n, _, err := streamB.Read(ctx, buf)
		if err != nil {
			return
		}
		readDone <- string(buf[:n])
	}()

	time.Sleep(20 * time.Millisecond)
	if _, err := streamA.Write(ctx, []byte("delayed")); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-readDone:
		if got != "delayed" {
			t.Fatalf("expected delayed, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream read never unblocked")
	}
}

func TestConnCloseWakesPendingAccept(t *testing.T) {
	_, engB := quictest.NewLoopbackPair("A", "B")
	connB := quicio.NewConn(syncutil.MutexFlavor, engB, 1, zerolog.Nop())
	engB.WireNotify(connB.Poke)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := connB.Accept(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := connB.Close(true, 0, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != quicio.ErrConnClosed {
			t.Fatalf("expected ErrConnClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("accept never woke up on close")
	}
}
