package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type of the config daemon
	ServiceType = "_zerostock._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries no port
	DefaultPort = 8080
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// browse runs an mDNS browse until ctx is done, handing each parsed device
// to found. It returns once the entry channel has been drained.
func (s *Scanner) browse(ctx context.Context, found func(*Device)) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for entry := range entries {
			if device := parseServiceEntry(entry); device != nil {
				found(device)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	select {
	case <-drained:
	case <-time.After(time.Second):
	}
	return nil
}

// ScanForDevices discovers every daemon that answers within the timeout.
// Devices are de-duplicated by address.
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	devices := make([]*Device, 0)

	err := s.browse(ctx, func(d *Device) {
		mu.Lock()
		defer mu.Unlock()
		if seen[d.Address()] {
			return
		}
		seen[d.Address()] = true
		devices = append(devices, d)
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

// WaitForDevice waits for a daemon advertising the given instance name
func (s *Scanner) WaitForDevice(ctx context.Context, instance string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	deviceChan := make(chan *Device, 1)
	err := s.browse(ctx, func(d *Device) {
		if strings.EqualFold(d.Instance, instance) {
			select {
			case deviceChan <- d:
			default:
			}
			cancel()
		}
	})
	if err != nil {
		return nil, err
	}

	select {
	case device := <-deviceChan:
		return device, nil
	default:
		return nil, fmt.Errorf("device %q not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Device{
		Instance:     unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// unescapeInstance undoes the DNS-SD escaping zeroconf leaves in
// instance names ("ZeroStock\ Config").
func unescapeInstance(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}
