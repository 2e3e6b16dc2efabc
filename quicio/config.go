package quicio

import "time"

// defaultTimerTick is how often Acceptor-managed connections check their
// engine's retransmit clock via DriveTimers.
const defaultTimerTick = 10 * time.Millisecond

// Config carries the knobs a real Engine construction needs, gathered
// into one passthrough struct the way hala_net's QuicConfig wraps
// quiche::Config plus a handful of hala-specific extensions. quicio
// itself never reads these fields — they exist so a ClientEngineFactory
// / ServerEngineFactory closure has one place to source its parameters
// from instead of threading a dozen arguments through Connect/Serve.
type Config struct {
	// ApplicationProtos is the ALPN list offered/negotiated, e.g.
	// []string{"h3"}.
	ApplicationProtos []string

	// MaxIdleTimeout bounds how long a connection survives without any
	// packet exchange before the engine should consider it dead.
	MaxIdleTimeout time.Duration

	// MaxSendUDPPayloadSize and MaxRecvUDPPayloadSize bound datagram
	// sizes offered during the handshake.
	MaxSendUDPPayloadSize int
	MaxRecvUDPPayloadSize int

	// InitialMaxData and the stream-scoped variants mirror quiche's flow
	// control knobs.
	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxStreamsBidi          uint64
	InitialMaxStreamsUni           uint64

	// UDPDataChannelLen is a queue bound for factories that buffer
	// not-yet-dispatched datagrams. quicio's Acceptor and Connector keep
	// no such queue and do not read it.
	UDPDataChannelLen int

	// StreamBufferSize sizes the default Read/Write scratch buffer a
	// caller allocates per Stream when it has no sizing preference of
	// its own.
	StreamBufferSize int

	// CertFile and KeyFile locate the server's TLS credentials; ignored
	// by client-side factories.
	CertFile string
	KeyFile  string

	// VerifyPeer asks the engine to verify the peer's certificate.
	VerifyPeer bool

	// DisableActiveMigration turns off connection migration.
	DisableActiveMigration bool
}

// DefaultConfig returns the knob values a new server or client should
// start from absent other preference.
func DefaultConfig() Config {
	return Config{
		ApplicationProtos:               []string{"hq-interop"},
		MaxIdleTimeout:                  30 * time.Second,
		MaxSendUDPPayloadSize:           1350,
		MaxRecvUDPPayloadSize:           1350,
		InitialMaxData:                  10 * 1024 * 1024,
		InitialMaxStreamDataBidiLocal:   1024 * 1024,
		InitialMaxStreamDataBidiRemote:  1024 * 1024,
		InitialMaxStreamDataUni:         1024 * 1024,
		InitialMaxStreamsBidi:           100,
		InitialMaxStreamsUni:            100,
		UDPDataChannelLen:               1024,
		StreamBufferSize:                1024,
	}
}
