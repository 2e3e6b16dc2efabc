//go:build linux

// Command aio-echo is a TCP echo server driven end to end by the
// epollit Driver, netio/tcp's adapters, and reactor.Await — a
// runnable demonstration of the stack the way socket515-gaio's own
// aio_test.go demonstrates gaio's WatchFile/Read/Write loop, minus the
// test harness.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aio-rt/aio/driver"
	"github.com/aio-rt/aio/driver/epollit"
	"github.com/aio-rt/aio/netio/tcp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drv, err := epollit.New(epollit.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("create driver")
	}
	defer drv.Close()

	// PollOnce is what fires the wakers Accept/Read/Write leave behind.
	go func() {
		for ctx.Err() == nil {
			if _, err := drv.FDCntl(driver.Handle{}, driver.PollOnceCmd{}); err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("poll")
				}
				return
			}
		}
	}()

	ln, err := tcp.Listen(drv, *addr, log)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("listen")
	}
	defer ln.Close()

	boundAddr, err := ln.Addr()
	if err != nil {
		log.Fatal().Err(err).Msg("local addr")
	}
	log.Info().Stringer("addr", boundAddr).Msg("aio-echo listening")

	for {
		conn, peer, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return
			}
			log.Error().Err(err).Msg("accept")
			continue
		}
		log.Debug().Stringer("peer", peer).Msg("accepted")
		go serve(ctx, conn, log)
	}
}

func serve(ctx context.Context, conn *tcp.Stream, log zerolog.Logger) {
	defer conn.Close()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(ctx, buf)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("connection ended")
			}
			return
		}
		if _, err := conn.Write(ctx, buf[:n]); err != nil {
			log.Debug().Err(err).Msg("write failed")
			return
		}
	}
}
