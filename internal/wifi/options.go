package wifi

// Defaults for a Raspberry Pi with a single wireless interface.
const (
	DefaultInterface      = "wlan0"
	DefaultSupplicantPath = "/etc/wpa_supplicant/wpa_supplicant.conf"
)

// Options locates the wireless interface and the wpa_supplicant credential
// file. It is passed to every reader and provisioner call.
type Options struct {
	Interface      string
	SupplicantPath string
}

// DefaultOptions returns the stock Raspberry Pi OS locations.
func DefaultOptions() Options {
	return Options{
		Interface:      DefaultInterface,
		SupplicantPath: DefaultSupplicantPath,
	}
}

func (o Options) withDefaults() Options {
	if o.Interface == "" {
		o.Interface = DefaultInterface
	}
	if o.SupplicantPath == "" {
		o.SupplicantPath = DefaultSupplicantPath
	}
	return o
}
