package interactive

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/htp1-protocol/htp1-go/pkg/htp1"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

const sessionTestMSO = `{
	"powerIsOn": true,
	"volume": -30,
	"muted": false,
	"input": "h1",
	"inputs": {
		"h1": {"label": "Apple TV", "visible": true},
		"h2": {"label": "Bluray", "visible": true}
	},
	"upmix": {
		"select": "dolby",
		"dolby": {"homevis": true},
		"off": {"homevis": true}
	},
	"cal": {"vph": 0, "vpl": -60}
}`

// sessionDevice answers getmso with a fixed snapshot and echoes every
// changemso back as msoupdate, recording the commands it received.
type sessionDevice struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	received []string
}

func (d *sessionDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		cmd, payload := wire.Split(string(data))
		d.mu.Lock()
		d.received = append(d.received, cmd)
		d.mu.Unlock()

		switch cmd {
		case wire.CmdGetMSO:
			conn.WriteMessage(websocket.TextMessage, []byte(wire.Join(wire.CmdMSO, sessionTestMSO)))
		case wire.CmdChangeMSO:
			conn.WriteMessage(websocket.TextMessage, []byte(wire.Join(wire.CmdMSOUpdate, payload)))
		}
	}
}

func (d *sessionDevice) commandCount(cmd string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.received {
		if c == cmd {
			n++
		}
	}
	return n
}

func newSessionClient(t *testing.T) (*htp1.Client, *sessionDevice) {
	t.Helper()

	device := &sessionDevice{}
	server := httptest.NewServer(device)
	t.Cleanup(server.Close)

	client := htp1.New(htp1.DefaultConfig(strings.TrimPrefix(server.URL, "http://")))
	t.Cleanup(client.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return client, device
}

func TestExecuteConsecutiveWrites(t *testing.T) {
	client, device := newSessionClient(t)

	var out bytes.Buffer
	if err := Execute(&out, client, "volume", []string{"-25"}); err != nil {
		t.Fatalf("first write command failed: %v", err)
	}
	if err := Execute(&out, client, "mute", []string{"on"}); err != nil {
		t.Fatalf("second write command failed: %v", err)
	}
	if err := Execute(&out, client, "power", []string{"off"}); err != nil {
		t.Fatalf("third write command failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for device.commandCount(wire.CmdChangeMSO) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("device received %d changemso frames, want 3", device.commandCount(wire.CmdChangeMSO))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestExecuteWriteAfterFailedWrite(t *testing.T) {
	client, _ := newSessionClient(t)

	var out bytes.Buffer
	if err := Execute(&out, client, "input", []string{"Turntable"}); err == nil {
		t.Fatal("expected error for unknown input label")
	}

	// The failed command must not hold the transaction open.
	if err := Execute(&out, client, "mute", []string{"on"}); err != nil {
		t.Fatalf("write after failed write: %v", err)
	}
}
