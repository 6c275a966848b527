package htp1

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/htp1-protocol/htp1-go/pkg/transport"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

// fakeConn is an in-memory transport.Conn scripted by tests.
type fakeConn struct {
	dialer *fakeDialer

	mu   sync.Mutex
	sent []string

	incoming chan transport.Frame
	closeCh  chan struct{}
	closeOne sync.Once
}

func newFakeConn(d *fakeDialer) *fakeConn {
	return &fakeConn{
		dialer:   d,
		incoming: make(chan transport.Frame, 32),
		closeCh:  make(chan struct{}),
	}
}

func (f *fakeConn) SendText(text string) error {
	select {
	case <-f.closeCh:
		return errors.New("send on closed fake conn")
	default:
	}

	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()

	// Scripted device: answer getmso with the configured snapshot.
	cmd, _ := wire.Split(text)
	if cmd == wire.CmdGetMSO && f.dialer != nil && f.dialer.mso != "" {
		f.push(wire.Join(wire.CmdMSO, f.dialer.mso))
	}
	return nil
}

func (f *fakeConn) Receive() (transport.Frame, error) {
	select {
	case frame := <-f.incoming:
		return frame, nil
	case <-f.closeCh:
		return transport.Frame{Type: transport.FrameClose}, nil
	}
}

func (f *fakeConn) Close() error {
	f.closeOne.Do(func() { close(f.closeCh) })
	return nil
}

// push queues an inbound text frame.
func (f *fakeConn) push(text string) {
	f.incoming <- transport.Frame{Type: transport.FrameText, Text: text}
}

// pushClose simulates the device dropping the connection.
func (f *fakeConn) pushClose() {
	f.incoming <- transport.Frame{Type: transport.FrameClose}
}

// sentFrames returns a copy of everything the client sent.
func (f *fakeConn) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeDialer hands out scripted connections.
type fakeDialer struct {
	mu sync.Mutex

	// mso, when set, makes every connection answer getmso with it.
	mso string

	// failDials makes the first N dials fail.
	failDials int

	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failDials > 0 {
		d.failDials--
		return nil, errors.New("connection refused")
	}

	conn := newFakeConn(d)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// testMSO is the snapshot used across the client tests.
const testMSO = `{
	"powerIsOn": true,
	"volume": -20,
	"muted": false,
	"input": "h1",
	"inputs": {
		"h1": {"label": "HDMI 1", "visible": true},
		"h2": {"label": "HDMI 2", "visible": true},
		"tv": {"label": "TV", "visible": false}
	},
	"upmix": {
		"select": "dolby",
		"dolby": {"homevis": true},
		"dts": {"homevis": true},
		"auro": {"homevis": false},
		"off": {"homevis": true}
	},
	"versions": {"SerialNumber": "HTP1-00042"},
	"cal": {"vph": 0, "vpl": -60}
}`

// newTestClient connects a client against a scripted device.
func newTestClient(t *testing.T) (*Client, *fakeDialer) {
	t.Helper()

	dialer := &fakeDialer{mso: testMSO}
	c := New(Config{
		Host:           "htp1.test",
		Dialer:         dialer,
		MSOTimeout:     time.Second,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})
	t.Cleanup(c.Stop)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return c, dialer
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
