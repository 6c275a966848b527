package transport

import (
	"context"
)

// FrameType classifies a received frame.
type FrameType uint8

const (
	// FrameText is a text frame carrying a protocol message.
	FrameText FrameType = iota

	// FrameClose signals that the connection is gone, either through a
	// close frame from the peer or a transport-level read failure.
	FrameClose

	// FrameIgnore is any other frame type (binary, control); the
	// receive loop skips it.
	FrameIgnore
)

// String returns a human-readable frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "TEXT"
	case FrameClose:
		return "CLOSE"
	case FrameIgnore:
		return "IGNORE"
	default:
		return "UNKNOWN"
	}
}

// Frame is one received websocket frame.
type Frame struct {
	// Type classifies the frame.
	Type FrameType

	// Text is the frame payload for FrameText frames.
	Text string
}

// Conn is an open websocket connection to the device.
// Implemented by WSConn.
type Conn interface {
	// SendText sends one text frame.
	SendText(text string) error

	// Receive blocks until the next frame arrives. Connection loss is
	// reported as a FrameClose frame, not an error; the error return is
	// reserved for local misuse (receive after Close).
	Receive() (Frame, error)

	// Close closes the connection. Idempotent.
	Close() error
}

// Dialer opens websocket connections.
// Implemented by WSDialer.
type Dialer interface {
	// Dial opens a websocket to url, honoring ctx for cancellation and
	// deadline.
	Dial(ctx context.Context, url string) (Conn, error)
}

// ControllerURL builds the control websocket URL for a device host.
func ControllerURL(host string) string {
	return "ws://" + host + "/ws/controller"
}

// Compile-time interface satisfaction checks.
var (
	_ Conn   = (*WSConn)(nil)
	_ Dialer = (*WSDialer)(nil)
)
