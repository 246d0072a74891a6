package deviceconfig

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the snapshot
func (s *Snapshot) Summary() string {
	ticker := "?"
	if s.Base != nil && s.Base.Ticker != nil {
		ticker = *s.Base.Ticker
	}
	mode := "?"
	if s.Display != nil && s.Display.Mode != nil {
		mode = *s.Display.Mode
	}
	status := "Unknown"
	if s.WiFi != nil && s.WiFi.Status != "" {
		status = s.WiFi.Status
	}
	return fmt.Sprintf("%s (%s) - %s", ticker, mode, status)
}

// FormatBaseSettings returns a formatted string with the [base] settings
func (s *Snapshot) FormatBaseSettings() string {
	var b strings.Builder

	b.WriteString("=== Data Settings ===\n")
	if s.Base == nil {
		b.WriteString("(not configured)\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Ticker:           %s\n", FormatOptionalString(s.Base.Ticker)))
	b.WriteString(fmt.Sprintf("Refresh Interval: %s\n", FormatValue(s.Base.RefreshIntervalMinutes, " min")))
	b.WriteString(fmt.Sprintf("Data Range:       %s\n", FormatValue(s.Base.DataRangeDays, " days")))
	b.WriteString(fmt.Sprintf("Data API:         %s\n", FormatOptionalString(s.Base.DataAPIBaseURL)))

	return b.String()
}

// FormatDisplaySettings returns a formatted string with the display settings
func (s *Snapshot) FormatDisplaySettings() string {
	var b strings.Builder

	b.WriteString("=== Display ===\n")
	if s.Display == nil {
		b.WriteString("(not configured)\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Mode: %s\n", FormatOptionalString(s.Display.Mode)))

	return b.String()
}

// FormatWiFiState returns a formatted string with the wireless state.
// The PSK is masked.
func (s *Snapshot) FormatWiFiState() string {
	var b strings.Builder

	b.WriteString("=== WiFi ===\n")
	if s.WiFi == nil {
		b.WriteString("(unknown)\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("SSID:   %s\n", OrDash(s.WiFi.SSID)))
	b.WriteString(fmt.Sprintf("PSK:    %s\n", MaskSecret(s.WiFi.PSK)))
	b.WriteString(fmt.Sprintf("Status: %s\n", OrDash(s.WiFi.Status)))

	return b.String()
}

// FormatDetailed returns all sections of the snapshot
func (s *Snapshot) FormatDetailed() string {
	return strings.Join([]string{
		s.FormatBaseSettings(),
		s.FormatDisplaySettings(),
		s.FormatWiFiState(),
	}, "\n")
}

// MaskSecret hides all but the last two characters of a secret
func MaskSecret(secret string) string {
	if secret == "" {
		return "-"
	}
	if len(secret) <= 2 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-2) + secret[len(secret)-2:]
}

// FormatValue renders a coerced setting with its unit, or "-" when unset.
func FormatValue(v any, unit string) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return fmt.Sprintf("%q (unparsed)", t)
	case float64:
		return FormatFloat(t) + unit
	default:
		return fmt.Sprintf("%v%s", t, unit)
	}
}

// FormatOptionalString renders an optional string setting
func FormatOptionalString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// OrDash returns s, or "-" when s is empty
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
