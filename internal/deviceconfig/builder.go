package deviceconfig

// RequestBuilder provides a fluent API for building write requests.
// It only records the fields that were set, so untouched keys stay
// untouched on the daemon.
//
// Example usage:
//
//	payload, req, err := NewRequestBuilder().
//	    SetTicker("BTC-USD").
//	    SetRefreshInterval(15).
//	    SetMode("candle").
//	    SetRestart(true).
//	    Build()
type RequestBuilder struct {
	base    map[string]any
	display map[string]any
	wifi    map[string]any
	restart bool
}

// NewRequestBuilder creates an empty builder
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

func (b *RequestBuilder) setBase(key string, v any) *RequestBuilder {
	if b.base == nil {
		b.base = make(map[string]any)
	}
	b.base[key] = v
	return b
}

// SetRefreshInterval sets [base] refresh_interval_minutes
func (b *RequestBuilder) SetRefreshInterval(minutes int) *RequestBuilder {
	return b.setBase(KeyRefreshInterval, minutes)
}

// SetDataRangeDays sets [base] data_range_days
func (b *RequestBuilder) SetDataRangeDays(days float64) *RequestBuilder {
	return b.setBase(KeyDataRange, days)
}

// SetDataAPIBaseURL sets [base] data_api_base_url
func (b *RequestBuilder) SetDataAPIBaseURL(url string) *RequestBuilder {
	return b.setBase(KeyDataAPIBaseURL, url)
}

// SetTicker sets [base] ticker
func (b *RequestBuilder) SetTicker(ticker string) *RequestBuilder {
	return b.setBase(KeyTicker, ticker)
}

// SetMode sets the display mode ("candle" or "line")
func (b *RequestBuilder) SetMode(mode string) *RequestBuilder {
	if b.display == nil {
		b.display = make(map[string]any)
	}
	b.display[KeyMode] = mode
	return b
}

// SetWiFi asks the daemon to join a wireless network.
func (b *RequestBuilder) SetWiFi(ssid, psk string) *RequestBuilder {
	b.wifi = map[string]any{"ssid": ssid, "psk": psk}
	return b
}

// SetRestart asks the daemon to restart the display service after applying.
func (b *RequestBuilder) SetRestart(restart bool) *RequestBuilder {
	b.restart = restart
	return b
}

// HasChanges returns true if the request would do anything
func (b *RequestBuilder) HasChanges() bool {
	return len(b.base) > 0 || len(b.display) > 0 || len(b.wifi) > 0 || b.restart
}

// Payload returns the request object as it is sent on the wire
func (b *RequestBuilder) Payload() map[string]any {
	payload := make(map[string]any)
	if len(b.base) > 0 {
		payload[SectionBase] = copyMap(b.base)
	}
	if len(b.display) > 0 {
		payload[SectionDisplay] = copyMap(b.display)
	}
	if len(b.wifi) > 0 {
		payload["wifi"] = copyMap(b.wifi)
	}
	if b.restart {
		payload["restart"] = true
	}
	return payload
}

// Build validates the request with the same rules the daemon applies and
// returns both the wire payload and the validated request.
func (b *RequestBuilder) Build() (map[string]any, *Request, error) {
	payload := b.Payload()
	req, err := ValidateRequest(payload)
	if err != nil {
		return nil, nil, err
	}
	return payload, req, nil
}

// Reset clears all recorded fields
func (b *RequestBuilder) Reset() *RequestBuilder {
	*b = RequestBuilder{}
	return b
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
