package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryToDevice(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: "HTP-1 Living Room",
			Service:  ServiceType,
			Domain:   Domain,
		},
		HostName: "htp1-a1b2.local.",
		Port:     80,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
	}

	device := entryToDevice(entry)
	require.NotNil(t, device)
	assert.Equal(t, "HTP-1 Living Room", device.InstanceName)
	assert.Equal(t, "htp1-a1b2.local.", device.Host)
	assert.Equal(t, uint16(80), device.Port)
	assert.Equal(t, []string{"192.168.1.40"}, device.Addresses)

	assert.Nil(t, entryToDevice(nil))
}

func TestControlHost(t *testing.T) {
	withAddr := &Device{Host: "htp1-a1b2.local.", Addresses: []string{"192.168.1.40", "fe80::1"}}
	assert.Equal(t, "192.168.1.40", withAddr.ControlHost())

	nameOnly := &Device{Host: "htp1-a1b2.local."}
	assert.Equal(t, "htp1-a1b2.local", nameOnly.ControlHost())
}

func TestMergeAddresses(t *testing.T) {
	merged := mergeAddresses([]string{"10.0.0.2"}, []string{"10.0.0.2", "fe80::1"})
	assert.Equal(t, []string{"10.0.0.2", "fe80::1"}, merged)
}

func TestFindAllRespectsTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mDNS browse in short mode")
	}

	b := NewBrowser(Config{BrowseTimeout: 200 * time.Millisecond})

	start := time.Now()
	results, err := b.FindAll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, results, "no HTP-1 expected on the test network")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBrowseImmediateCancel(t *testing.T) {
	b := NewBrowser(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices, err := b.Browse(ctx)
	require.NoError(t, err)

	select {
	case _, ok := <-devices:
		assert.False(t, ok, "channel should close without results")
	case <-time.After(2 * time.Second):
		t.Fatal("browse channel not closed after cancel")
	}
}
