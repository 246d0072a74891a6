package config

import (
	"strings"
	"time"

	"github.com/muurk/zerostock/internal/discovery"
)

// Registry is the client's device file. It remembers daemons found by scan
// and which one was used last, so commands can omit --device.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by mDNS hostname, or address for manual entries
	LastDevice  string             `yaml:"last_device,omitempty"`
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is one remembered daemon.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`
	Instance string    `yaml:"instance,omitempty"`
	Address  string    `yaml:"address"` // host:port
	Version  string    `yaml:"version,omitempty"`
	TLS      bool      `yaml:"tls,omitempty"`
	WSPath   string    `yaml:"ws_path,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout int `yaml:"discover_timeout"` // mDNS discovery timeout in seconds
}

const defaultDiscoverTimeout = 5

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: defaultDiscoverTimeout,
		},
	}
}

// GetDevice retrieves a device by key.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(key string) *Device {
	return r.Devices[key]
}

// EnsureDevice ensures a device entry exists in the registry.
func (r *Registry) EnsureDevice(key string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if device, exists := r.Devices[key]; exists {
		return device
	}
	device := &Device{}
	r.Devices[key] = device
	return device
}

// RecordDiscovery stores or refreshes a scanned daemon and returns its key.
func (r *Registry) RecordDiscovery(d *discovery.Device) string {
	key := strings.TrimSuffix(d.Hostname, ".")
	if key == "" {
		key = d.Address()
	}

	device := r.EnsureDevice(key)
	device.Instance = d.Instance
	device.Address = d.Address()
	device.Version = d.GetMetadata(discovery.TxtVersion)
	device.TLS = d.GetMetadata(discovery.TxtTLS) == "1"
	device.WSPath = d.GetMetadata(discovery.TxtWS)
	device.LastSeen = time.Now()
	return key
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(key, nickname string) {
	r.EnsureDevice(key).Nickname = nickname
}

// Resolve finds a device by key, nickname or address. An empty ref
// selects the last used device. A ref that matches nothing but looks like
// host:port is returned as an unsaved entry.
func (r *Registry) Resolve(ref string) (string, *Device, bool) {
	if ref == "" {
		ref = r.LastDevice
		if ref == "" {
			return "", nil, false
		}
	}
	if d, ok := r.Devices[ref]; ok {
		return ref, d, true
	}
	for key, d := range r.Devices {
		if strings.EqualFold(d.Nickname, ref) || d.Address == ref {
			return key, d, true
		}
	}
	if strings.Contains(ref, ":") {
		return ref, &Device{Address: ref}, true
	}
	return "", nil, false
}

// UseDevice marks key as the last used device.
func (r *Registry) UseDevice(key string) {
	r.LastDevice = key
	if d, ok := r.Devices[key]; ok {
		d.LastSeen = time.Now()
	}
}

// Target converts a stored device back into a discovery.Device so the
// URL helpers can be shared.
func (d *Device) Target() *discovery.Device {
	host, port := splitAddress(d.Address)
	if port == 0 {
		port = discovery.DefaultPort
	}
	meta := map[string]string{}
	if d.WSPath != "" {
		meta[discovery.TxtWS] = d.WSPath
	}
	if d.TLS {
		meta[discovery.TxtTLS] = "1"
	}
	return &discovery.Device{
		Instance: d.Instance,
		IP:       host,
		Port:     port,
		Metadata: meta,
	}
}
