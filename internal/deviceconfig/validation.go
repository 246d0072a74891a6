package deviceconfig

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Accepted ranges for numeric settings (inclusive)
const (
	MinRefreshIntervalMinutes = 1
	MaxRefreshIntervalMinutes = 1440
	MinDataRangeDays          = 0.1
	MaxDataRangeDays          = 365.0
)

// Validate type- and range-checks an untyped request object and returns the
// settings it asks to change. Unknown top-level fields are ignored and an
// empty sub-object contributes nothing. On failure no partial set is
// returned. Validate has no side effects.
//
// Numbers are expected as json.Number (decoder with UseNumber) or native Go
// numeric types. Integer fields reject fractional or exponent forms.
func Validate(payload map[string]any) (*UpdateSet, error) {
	updates := &UpdateSet{}

	if raw, ok := payload[SectionBase]; ok {
		base, ok := raw.(map[string]any)
		if !ok {
			return nil, NewValidationError(SectionBase, "base must be an object")
		}
		if err := validateBase(base, updates); err != nil {
			return nil, err
		}
	}

	if raw, ok := payload[SectionDisplay]; ok {
		display, ok := raw.(map[string]any)
		if !ok {
			return nil, NewValidationError(SectionDisplay, "epd2in13v3 must be an object")
		}
		if err := validateDisplay(display, updates); err != nil {
			return nil, err
		}
	}

	return updates, nil
}

func validateBase(base map[string]any, updates *UpdateSet) error {
	if raw, ok := base[KeyRefreshInterval]; ok {
		n, err := ValidateRefreshInterval(raw)
		if err != nil {
			return err
		}
		updates.Set(SectionBase, KeyRefreshInterval, IntValue(n))
	}

	if raw, ok := base[KeyDataRange]; ok {
		f, err := ValidateDataRangeDays(raw)
		if err != nil {
			return err
		}
		updates.Set(SectionBase, KeyDataRange, FloatValue(f))
	}

	if raw, ok := base[KeyDataAPIBaseURL]; ok {
		s, err := validateNonEmptyString(KeyDataAPIBaseURL, raw)
		if err != nil {
			return err
		}
		updates.Set(SectionBase, KeyDataAPIBaseURL, StringValue(s))
	}

	if raw, ok := base[KeyTicker]; ok {
		s, err := validateNonEmptyString(KeyTicker, raw)
		if err != nil {
			return err
		}
		updates.Set(SectionBase, KeyTicker, StringValue(s))
	}

	return nil
}

func validateDisplay(display map[string]any, updates *UpdateSet) error {
	if raw, ok := display[KeyMode]; ok {
		mode, err := ValidateMode(raw)
		if err != nil {
			return err
		}
		updates.Set(SectionDisplay, KeyMode, StringValue(mode))
	}
	return nil
}

// ValidateRefreshInterval checks refresh_interval_minutes: an integer in 1-1440.
func ValidateRefreshInterval(raw any) (int, error) {
	n, err := asInt(raw)
	if errors.Is(err, strconv.ErrRange) {
		return 0, NewValidationError(KeyRefreshInterval, "refresh_interval_minutes out of range")
	}
	if err != nil {
		return 0, NewValidationError(KeyRefreshInterval, "refresh_interval_minutes must be int")
	}
	if n < MinRefreshIntervalMinutes || n > MaxRefreshIntervalMinutes {
		return 0, NewValidationError(KeyRefreshInterval, "refresh_interval_minutes out of range")
	}
	return int(n), nil
}

// ValidateDataRangeDays checks data_range_days: any number in 0.1-365.0,
// returned as a float.
func ValidateDataRangeDays(raw any) (float64, error) {
	f, err := asFloat(raw)
	if errors.Is(err, strconv.ErrRange) {
		return 0, NewValidationError(KeyDataRange, "data_range_days out of range")
	}
	if err != nil {
		return 0, NewValidationError(KeyDataRange, "data_range_days must be number")
	}
	if math.IsNaN(f) || f < MinDataRangeDays || f > MaxDataRangeDays {
		return 0, NewValidationError(KeyDataRange, "data_range_days out of range")
	}
	return f, nil
}

// ValidateMode trims and lower-cases a display mode and checks it is known.
func ValidateMode(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", NewValidationError(KeyMode, "mode must be string")
	}
	mode := strings.ToLower(strings.TrimSpace(s))
	if mode != ModeCandle && mode != ModeLine {
		return "", NewValidationError(KeyMode, "mode must be candle or line")
	}
	return mode, nil
}

func validateNonEmptyString(key string, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", NewValidationError(key, key+" must be string")
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", NewValidationError(key, key+" cannot be empty")
	}
	// The settings file ends a value at a comment marker or line break
	if strings.ContainsAny(trimmed, unstorableChars) {
		return "", NewValidationError(key, key+" cannot contain '#', ';' or line breaks")
	}
	return trimmed, nil
}

const unstorableChars = "#;\r\n"

var errNotNumber = errors.New("not a number")

// asInt accepts integral JSON numbers and Go integer types. Floats are
// rejected even when integral, as are booleans.
func asInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		return strconv.ParseInt(v.String(), 10, 64)
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	default:
		return 0, errNotNumber
	}
}

func asFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return strconv.ParseFloat(v.String(), 64)
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		n, err := asInt(raw)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
}

// ValidateRequest checks a whole write request: the wifi object shape, the
// settings (via Validate) and the wifi credentials, in that order. Every
// check happens before anything is mutated.
func ValidateRequest(payload map[string]any) (*Request, error) {
	rawWiFi, hasWiFi := payload["wifi"]
	var wifi map[string]any
	if hasWiFi && rawWiFi != nil {
		m, ok := rawWiFi.(map[string]any)
		if !ok {
			return nil, NewValidationError("wifi", "wifi must be an object")
		}
		wifi = m
	}

	updates, err := Validate(payload)
	if err != nil {
		return nil, err
	}

	req := &Request{Updates: updates}

	if len(wifi) > 0 {
		creds, err := ValidateWiFi(wifi)
		if err != nil {
			return nil, err
		}
		req.WiFi = creds
	}

	if restart, ok := payload["restart"].(bool); ok && restart {
		req.Restart = true
	}

	return req, nil
}

// ValidateWiFi checks a non-empty wifi object. Both ssid and psk must be
// present, non-empty strings; the SSID is trimmed and must stay non-empty.
func ValidateWiFi(wifi map[string]any) (*WiFiCredentials, error) {
	ssidRaw := wifi["ssid"]
	pskRaw := wifi["psk"]
	if isFalsy(ssidRaw) || isFalsy(pskRaw) {
		return nil, NewValidationError("wifi", "wifi ssid and psk are required")
	}

	ssid, ok1 := ssidRaw.(string)
	psk, ok2 := pskRaw.(string)
	if !ok1 || !ok2 {
		return nil, NewValidationError("wifi", "wifi ssid and psk must be strings")
	}

	ssid = strings.TrimSpace(ssid)
	if ssid == "" {
		return nil, NewValidationError("wifi.ssid", "wifi ssid cannot be empty")
	}

	return &WiFiCredentials{SSID: ssid, PSK: psk}, nil
}

// isFalsy reports JSON values that count as "not provided": null, false,
// zero, "" and empty containers.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
