package quicio

import "fmt"

// Event key builders. These replace QuicConnEvents (conn_state.rs), an
// enum used as a HashMap key in the original, with plain strings: Go's
// map key comparison is already structural for strings, so there is no
// need for the Hash/Eq derive the Rust enum carried.
func sendKey(traceID string) string { return fmt.Sprintf("send:%s", traceID) }

func recvKey(traceID string) string { return fmt.Sprintf("recv:%s", traceID) }

func streamSendKey(traceID string, streamID uint64) string {
	return fmt.Sprintf("stream_send:%s:%d", traceID, streamID)
}

func streamRecvKey(traceID string, streamID uint64) string {
	return fmt.Sprintf("stream_recv:%s:%d", traceID, streamID)
}

func acceptKey(traceID string) string { return fmt.Sprintf("accept:%s", traceID) }

const openStreamKey = "open_stream"
