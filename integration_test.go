package htp1go_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htp1-protocol/htp1-go/pkg/htp1"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

// fakeDevice is an in-process HTP-1 speaking the control websocket
// protocol on /ws/controller. It answers getmso with its current state
// and applies changemso operations, echoing them back as msoupdate the
// way the real device does.
type fakeDevice struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	state map[string]any
	conns []*websocket.Conn
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		state: map[string]any{
			"powerIsOn": true,
			"volume":    float64(-30),
			"muted":     false,
			"input":     "h1",
			"inputs": map[string]any{
				"h1": map[string]any{"label": "Apple TV", "visible": true},
				"h2": map[string]any{"label": "Bluray", "visible": true},
			},
			"upmix": map[string]any{
				"select": "dolby",
				"dolby":  map[string]any{"homevis": true},
				"off":    map[string]any{"homevis": true},
			},
		},
	}
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ws/controller" {
		http.NotFound(w, r)
		return
	}
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		d.handleFrame(conn, string(data))
	}
}

func (d *fakeDevice) handleFrame(conn *websocket.Conn, frame string) {
	cmd, payload, _ := strings.Cut(frame, " ")

	switch cmd {
	case wire.CmdGetMSO:
		d.mu.Lock()
		snapshot, _ := json.Marshal(d.state)
		d.mu.Unlock()
		conn.WriteMessage(websocket.TextMessage, []byte(wire.CmdMSO+" "+string(snapshot)))

	case wire.CmdChangeMSO:
		var ops []struct {
			Op    string `json:"op"`
			Path  string `json:"path"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal([]byte(payload), &ops); err != nil {
			return
		}
		d.mu.Lock()
		for _, op := range ops {
			key := strings.TrimPrefix(op.Path, "/")
			if !strings.Contains(key, "/") {
				d.state[key] = op.Value
			}
		}
		d.mu.Unlock()
		// Echo the accepted changes back to the session.
		conn.WriteMessage(websocket.TextMessage, []byte(wire.CmdMSOUpdate+" "+payload))
	}
}

func (d *fakeDevice) dropConnections() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conn := range d.conns {
		conn.Close()
	}
	d.conns = nil
}

func startFakeDevice(t *testing.T) (*fakeDevice, string) {
	t.Helper()
	device := newFakeDevice()
	server := httptest.NewServer(device)
	t.Cleanup(server.Close)
	host := strings.TrimPrefix(server.URL, "http://")
	return device, host
}

// TestE2E_ConnectAndRead connects over a real websocket and reads the
// mirrored state.
func TestE2E_ConnectAndRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, host := startFakeDevice(t)

	client := htp1.New(htp1.DefaultConfig(host))
	defer client.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	require.True(t, client.Connected())

	volume, err := client.Volume()
	require.NoError(t, err)
	assert.Equal(t, float64(-30), volume)

	input, err := client.Input()
	require.NoError(t, err)
	assert.Equal(t, "Apple TV", input)

	assert.ElementsMatch(t, []string{"Apple TV", "Bluray"}, client.Inputs())
}

// TestE2E_WriteRoundTrip commits a change and waits for the device's
// msoupdate echo to land in the mirrored state.
func TestE2E_WriteRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, host := startFakeDevice(t)

	client := htp1.New(htp1.DefaultConfig(host))
	defer client.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	updated := make(chan any, 1)
	client.Subscribe("/volume", func(value any) {
		select {
		case updated <- value:
		default:
		}
	})

	tx, err := client.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.SetVolume(-25))
	sent, err := tx.Commit()
	require.NoError(t, err)
	require.True(t, sent)

	select {
	case value := <-updated:
		assert.Equal(t, float64(-25), value)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for msoupdate echo")
	}

	volume, err := client.Volume()
	require.NoError(t, err)
	assert.Equal(t, float64(-25), volume)
}

// TestE2E_Reconnect drops the server side of the websocket and waits
// for the client to re-establish the session on its own.
func TestE2E_Reconnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	device, host := startFakeDevice(t)

	cfg := htp1.DefaultConfig(host)
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 200 * time.Millisecond

	client := htp1.New(cfg)
	defer client.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	device.dropConnections()

	require.Eventually(t, func() bool {
		return !client.Connected()
	}, 5*time.Second, 5*time.Millisecond, "client did not notice the drop")

	require.Eventually(t, func() bool {
		return client.Connected()
	}, 5*time.Second, 20*time.Millisecond, "client did not reconnect")

	// The fresh session serves reads again.
	volume, err := client.Volume()
	require.NoError(t, err)
	assert.Equal(t, float64(-30), volume)
}
