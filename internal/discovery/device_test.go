package discovery

import "testing"

func TestDevice_String(t *testing.T) {
	device := &Device{
		Instance: "ZeroStock Config",
		Hostname: "zerostock.local.",
		IP:       "192.168.4.16",
		Port:     8080,
	}

	expected := "ZeroStock Config (zerostock.local.) at 192.168.4.16:8080"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_URLs(t *testing.T) {
	tests := []struct {
		name       string
		device     *Device
		wantConfig string
		wantWS     string
	}{
		{
			name:       "no metadata uses default paths",
			device:     &Device{IP: "192.168.4.16", Port: 8080},
			wantConfig: "http://192.168.4.16:8080/config",
			wantWS:     "ws://192.168.4.16:8080/ws",
		},
		{
			name: "advertised paths",
			device: &Device{IP: "10.0.0.5", Port: 9000, Metadata: map[string]string{
				TxtPath: "/api/config", TxtWS: "/api/ws",
			}},
			wantConfig: "http://10.0.0.5:9000/api/config",
			wantWS:     "ws://10.0.0.5:9000/api/ws",
		},
		{
			name:       "tls flag switches schemes",
			device:     &Device{IP: "10.0.0.5", Port: 8443, Metadata: map[string]string{TxtTLS: "1"}},
			wantConfig: "https://10.0.0.5:8443/config",
			wantWS:     "wss://10.0.0.5:8443/ws",
		},
		{
			name:       "IPv6 address is bracketed",
			device:     &Device{IP: "fe80::1", Port: 8080},
			wantConfig: "http://[fe80::1]:8080/config",
			wantWS:     "ws://[fe80::1]:8080/ws",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.ConfigURL(); got != tt.wantConfig {
				t.Errorf("ConfigURL() = %v, want %v", got, tt.wantConfig)
			}
			if got := tt.device.WebSocketURL(); got != tt.wantWS {
				t.Errorf("WebSocketURL() = %v, want %v", got, tt.wantWS)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	device := &Device{Metadata: map[string]string{TxtVersion: "v1.0.0"}}
	if got := device.GetMetadata(TxtVersion); got != "v1.0.0" {
		t.Errorf("GetMetadata(version) = %q", got)
	}
	if got := device.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}

	var empty Device
	if got := empty.GetMetadata(TxtVersion); got != "" {
		t.Errorf("nil metadata GetMetadata() = %q, want empty", got)
	}
}
