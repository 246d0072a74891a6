package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/zerostock/internal/deviceconfig"
)

type row struct{ key, value string }

// RenderSnapshot renders a read snapshot as a bordered panel. The PSK is
// masked unless showSecret is set.
func RenderSnapshot(snap *deviceconfig.Snapshot, width int, showSecret bool) string {
	width = clampWidth(width)

	var base []row
	if snap.Base != nil {
		base = []row{
			{"Ticker", deviceconfig.FormatOptionalString(snap.Base.Ticker)},
			{"Refresh interval", deviceconfig.FormatValue(snap.Base.RefreshIntervalMinutes, " min")},
			{"Data range", deviceconfig.FormatValue(snap.Base.DataRangeDays, " days")},
			{"Data API", deviceconfig.FormatOptionalString(snap.Base.DataAPIBaseURL)},
		}
	}

	var display []row
	if snap.Display != nil {
		display = []row{{"Mode", deviceconfig.FormatOptionalString(snap.Display.Mode)}}
	}

	var wifi []row
	if snap.WiFi != nil {
		psk := deviceconfig.MaskSecret(snap.WiFi.PSK)
		if showSecret {
			psk = deviceconfig.OrDash(snap.WiFi.PSK)
		}
		wifi = []row{
			{"SSID", deviceconfig.OrDash(snap.WiFi.SSID)},
			{"PSK", psk},
			{"Status", deviceconfig.OrDash(snap.WiFi.Status)},
		}
	}

	sections := []string{
		renderSection("Data", base, "not configured"),
		renderSection("Display", display, "not configured"),
		renderSection("WiFi", wifi, "unknown"),
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-2).
		Padding(0, 1).
		Render(strings.Join(sections, "\n\n"))
}

func renderSection(title string, rows []row, empty string) string {
	lines := []string{SectionTitleStyle.Render(title)}
	if len(rows) == 0 {
		lines = append(lines, StepNoteStyle.Render("  ("+empty+")"))
		return strings.Join(lines, "\n")
	}
	for _, r := range rows {
		lines = append(lines, ResultKeyStyle.Render("  "+r.key+":")+" "+ResultValueStyle.Render(r.value))
	}
	return strings.Join(lines, "\n")
}
