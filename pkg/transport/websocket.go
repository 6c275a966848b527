package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport errors.
var (
	ErrConnClosed = errors.New("connection closed")
)

// Default timeouts for the websocket transport.
const (
	// DefaultHandshakeTimeout bounds the websocket upgrade.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds one outbound frame write.
	DefaultWriteTimeout = 10 * time.Second
)

// WSDialer opens websocket connections using gorilla/websocket.
type WSDialer struct {
	// HandshakeTimeout bounds the dial and upgrade. Zero means
	// DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound write on opened connections.
	// Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// Dial opens a websocket to url.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = DefaultHandshakeTimeout
	}
	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: handshake,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return &WSConn{
		ws:           ws,
		writeTimeout: writeTimeout,
	}, nil
}

// WSConn is a gorilla/websocket connection satisfying Conn.
//
// Writes are serialized internally; gorilla permits at most one
// concurrent writer. Receive must only be called from one goroutine
// (the client's receive loop).
type WSConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

// SendText sends one text frame.
func (c *WSConn) SendText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrConnClosed
	}

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send text frame: %w", err)
	}
	return nil
}

// Receive blocks until the next frame. Any read failure, including a
// close frame from the peer, is reported as FrameClose.
func (c *WSConn) Receive() (Frame, error) {
	if c.isClosed() {
		return Frame{}, ErrConnClosed
	}

	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{Type: FrameClose}, nil
	}

	switch messageType {
	case websocket.TextMessage:
		return Frame{Type: FrameText, Text: string(data)}, nil
	default:
		return Frame{Type: FrameIgnore}, nil
	}
}

// Close closes the connection. Safe to call multiple times; a pending
// Receive unblocks with a FrameClose.
func (c *WSConn) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	// Best effort close handshake before dropping the socket.
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}

func (c *WSConn) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}
