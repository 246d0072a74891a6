package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TXT record keys published by the daemon
const (
	TxtPath    = "path"
	TxtWS      = "ws"
	TxtVersion = "version"
	TxtTLS     = "tls"
)

// Device is a config daemon found on the local network
type Device struct {
	// Instance is the advertised service instance name (e.g. "ZeroStock Config")
	Instance string

	// Hostname is the mDNS hostname (e.g. "zerostock.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port
	Port int

	// Metadata holds the TXT record: path, ws, version, tls
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns host:port
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

func (d *Device) scheme(plain, secure string) string {
	if d.GetMetadata(TxtTLS) == "1" {
		return secure
	}
	return plain
}

// ConfigURL returns the read/write endpoint URL
func (d *Device) ConfigURL() string {
	path := d.GetMetadata(TxtPath)
	if path == "" {
		path = "/config"
	}
	return d.scheme("http", "https") + "://" + d.Address() + path
}

// WebSocketURL returns the notify endpoint URL
func (d *Device) WebSocketURL() string {
	path := d.GetMetadata(TxtWS)
	if path == "" {
		path = "/ws"
	}
	return d.scheme("ws", "wss") + "://" + d.Address() + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
