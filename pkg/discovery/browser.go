package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS constants for HTP-1 announcements.
const (
	// ServiceType is the service type the HTP-1 advertises.
	ServiceType = "_htp1._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second
)

// Device is one discovered HTP-1 unit.
type Device struct {
	// InstanceName is the advertised instance name.
	InstanceName string

	// Host is the mDNS host name ("htp1-a1b2.local.").
	Host string

	// Port is the advertised control port.
	Port uint16

	// Addresses holds the unit's IP addresses as strings.
	Addresses []string
}

// Config configures browser behavior.
type Config struct {
	// BrowseTimeout is the default timeout for bounded operations.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{
		BrowseTimeout: BrowseTimeout,
	}
}

// Browser browses mDNS for HTP-1 units.
type Browser struct {
	config Config
}

// NewBrowser creates a browser with the given configuration.
func NewBrowser(config Config) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse searches for HTP-1 units until ctx is cancelled. Units from
// multiple interfaces are aggregated by instance name; each unit is
// emitted once. The returned channel is closed when browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *Device, error) {
	out := make(chan *Device)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(out)

		seen := make(map[string]*Device)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				device := entryToDevice(entry)
				if device == nil {
					continue
				}

				existing, found := seen[device.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, device.Addresses)
					continue
				}

				seen[device.InstanceName] = device
				select {
				case out <- device:
				case <-ctx.Done():
					return
				}

			case _, ok := <-removed:
				if !ok {
					continue
				}
				// Units that disappear stay in seen so a flapping
				// advertisement is not emitted twice.

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindAll collects every unit discovered within the browse timeout.
func (b *Browser) FindAll(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	devices, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Device, 0)
	for device := range devices {
		results = append(results, device)
	}
	return results, nil
}

// FindFirst returns the first unit discovered, or nil if none shows up
// within the browse timeout.
func (b *Browser) FindFirst(ctx context.Context) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	devices, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for device := range devices {
		cancel()
		return device, nil
	}
	return nil, nil
}

// ControlHost returns the address to hand to the client: the first IP
// address when available, otherwise the mDNS host name.
func (d *Device) ControlHost() string {
	if len(d.Addresses) > 0 {
		return d.Addresses[0]
	}
	return strings.TrimSuffix(d.Host, ".")
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToDevice converts a zeroconf entry to a Device.
func entryToDevice(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Device{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
	}
}

// mergeAddresses combines two address lists without duplicates,
// preserving order.
func mergeAddresses(existing, incoming []string) []string {
	known := make(map[string]bool, len(existing))
	for _, addr := range existing {
		known[addr] = true
	}
	for _, addr := range incoming {
		if !known[addr] {
			existing = append(existing, addr)
			known[addr] = true
		}
	}
	return existing
}
