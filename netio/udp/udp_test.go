package udp

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aio-rt/aio/driver/mockdriver"
)

func TestSendRecvRoundTrip(t *testing.T) {
	drv := mockdriver.New(zerolog.Nop(), time.Millisecond)

	a, err := Bind(drv, "127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	b, err := Bind(drv, "127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	aAddr, err := a.LocalAddr()
	require.NoError(t, err)
	bAddr, err := b.LocalAddr()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = a.SendTo(ctx, []byte("ping"), bAddr)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, from, err := b.RecvFrom(ctx, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
	require.Equal(t, aAddr.String(), from.String())
}

func TestBindRejectsUnresolvableAddress(t *testing.T) {
	drv := mockdriver.New(zerolog.Nop(), time.Millisecond)
	_, err := Bind(drv, "not-an-address::::", zerolog.Nop())
	require.Error(t, err)
}
