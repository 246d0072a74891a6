package deviceconfig

import (
	"math"
	"strconv"
	"strings"
)

// Recognized sections and keys of the display settings file.
const (
	SectionBase    = "base"
	SectionDisplay = "epd2in13v3"

	KeyRefreshInterval = "refresh_interval_minutes"
	KeyDataRange       = "data_range_days"
	KeyDataAPIBaseURL  = "data_api_base_url"
	KeyTicker          = "ticker"
	KeyMode            = "mode"
)

// Display modes accepted for SectionDisplay.KeyMode
const (
	ModeCandle = "candle"
	ModeLine   = "line"
)

// ValueKind is the type a whitelisted key is coerced to.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
)

// Field is one whitelisted (section, key) pair.
type Field struct {
	Section string
	Key     string
	Kind    ValueKind
}

// Fields is the fixed whitelist, in the order keys are validated, written
// and reported.
var Fields = []Field{
	{Section: SectionBase, Key: KeyRefreshInterval, Kind: KindInt},
	{Section: SectionBase, Key: KeyDataRange, Kind: KindFloat},
	{Section: SectionBase, Key: KeyDataAPIBaseURL, Kind: KindString},
	{Section: SectionBase, Key: KeyTicker, Kind: KindString},
	{Section: SectionDisplay, Key: KeyMode, Kind: KindString},
}

// Value is a validated, typed setting value.
type Value struct {
	Kind  ValueKind
	Int   int
	Float float64
	Str   string
}

// IntValue wraps an integer setting
func IntValue(n int) Value { return Value{Kind: KindInt, Int: n} }

// FloatValue wraps a floating point setting
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue wraps a string setting
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// String returns the text written into the settings file.
// Floats always carry a fractional part so that 7 is written as "7.0".
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return FormatFloat(v.Float)
	default:
		return v.Str
	}
}

// Interface returns the value as a plain Go value for JSON encoding.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	default:
		return v.Str
	}
}

// FormatFloat renders f in shortest round-trip form with a fractional part.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Update is a single (section, key) assignment.
type Update struct {
	Section string
	Key     string
	Value   Value
}

// UpdateSet is a validated section -> key -> value mapping. Keys absent from
// the set are left untouched by the patcher. The zero value is empty and
// ready to use.
type UpdateSet struct {
	updates []Update
}

// Set records a value, replacing any earlier value for the same key.
func (u *UpdateSet) Set(section, key string, v Value) {
	for i := range u.updates {
		if u.updates[i].Section == section && u.updates[i].Key == key {
			u.updates[i].Value = v
			return
		}
	}
	u.updates = append(u.updates, Update{Section: section, Key: key, Value: v})
}

// Get returns the value recorded for a key.
func (u *UpdateSet) Get(section, key string) (Value, bool) {
	if u == nil {
		return Value{}, false
	}
	for _, up := range u.updates {
		if up.Section == section && up.Key == key {
			return up.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of recorded keys
func (u *UpdateSet) Len() int {
	if u == nil {
		return 0
	}
	return len(u.updates)
}

// Empty reports whether the set would change nothing
func (u *UpdateSet) Empty() bool {
	return u.Len() == 0
}

// Sections returns the touched sections in first-touched order.
func (u *UpdateSet) Sections() []string {
	if u == nil {
		return nil
	}
	var sections []string
	seen := make(map[string]bool)
	for _, up := range u.updates {
		if !seen[up.Section] {
			seen[up.Section] = true
			sections = append(sections, up.Section)
		}
	}
	return sections
}

// Section returns the updates for one section in insertion order.
func (u *UpdateSet) Section(name string) []Update {
	if u == nil {
		return nil
	}
	var out []Update
	for _, up := range u.updates {
		if up.Section == name {
			out = append(out, up)
		}
	}
	return out
}

// Updates returns a copy of all updates in insertion order.
func (u *UpdateSet) Updates() []Update {
	if u == nil {
		return nil
	}
	out := make([]Update, len(u.updates))
	copy(out, u.updates)
	return out
}

// WiFiCredentials is a validated request to join a wireless network.
// PSK is kept verbatim; only the SSID is trimmed.
type WiFiCredentials struct {
	SSID string
	PSK  string
}

// Request is a fully validated write request.
type Request struct {
	Updates *UpdateSet
	WiFi    *WiFiCredentials
	Restart bool
}

// BaseSettings is the [base] part of a read snapshot. Numeric fields hold
// an int or a json.Number (floats keep a fractional part), or the raw
// string when the file value does not parse.
type BaseSettings struct {
	RefreshIntervalMinutes any     `json:"refresh_interval_minutes,omitempty"`
	DataRangeDays          any     `json:"data_range_days,omitempty"`
	DataAPIBaseURL         *string `json:"data_api_base_url,omitempty"`
	Ticker                 *string `json:"ticker,omitempty"`
}

// IsEmpty reports whether no [base] key resolved
func (b *BaseSettings) IsEmpty() bool {
	return b.RefreshIntervalMinutes == nil && b.DataRangeDays == nil &&
		b.DataAPIBaseURL == nil && b.Ticker == nil
}

// DisplaySettings is the [epd2in13v3] part of a read snapshot.
type DisplaySettings struct {
	Mode *string `json:"mode,omitempty"`
}

// WiFiState is the wireless part of a read snapshot. Fields that could not
// be resolved are empty and omitted from JSON.
type WiFiState struct {
	SSID   string `json:"ssid,omitempty"`
	PSK    string `json:"psk,omitempty"`
	Status string `json:"status,omitempty"`
}

// IsEmpty reports whether nothing about the wireless link resolved
func (w *WiFiState) IsEmpty() bool {
	return w.SSID == "" && w.PSK == "" && w.Status == ""
}

// Snapshot is the read response. Sections with no resolved field are nil.
type Snapshot struct {
	Base    *BaseSettings    `json:"base,omitempty"`
	Display *DisplaySettings `json:"epd2in13v3,omitempty"`
	WiFi    *WiFiState       `json:"wifi,omitempty"`
}
