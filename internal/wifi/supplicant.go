package wifi

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	ssidLine = regexp.MustCompile(`^ssid\s*=\s*"(.+)"`)
	pskLine  = regexp.MustCompile(`^#?psk\s*=\s*"(.+)"`)
)

// FindPSK scans wpa_supplicant.conf content for a network block whose ssid
// line equals ssid and returns the quoted passphrase from the same block.
// A commented "#psk=" line, as written by wpa_passphrase, counts. Only
// single-level blocks are understood; nested braces are not balanced.
func FindPSK(content, ssid string) (string, bool) {
	var (
		inNetwork   bool
		currentSSID string
		currentPSK  string
	)

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "network={"):
			inNetwork, currentSSID, currentPSK = true, "", ""
		case inNetwork && strings.HasPrefix(line, "}"):
			if currentSSID == ssid && currentPSK != "" {
				return currentPSK, true
			}
			inNetwork, currentSSID, currentPSK = false, "", ""
		case !inNetwork:
		default:
			if m := ssidLine.FindStringSubmatch(line); m != nil {
				currentSSID = m[1]
			} else if m := pskLine.FindStringSubmatch(line); m != nil {
				currentPSK = m[1]
			}
		}
	}
	return "", false
}

func networkPattern(ssid string) *regexp.Regexp {
	return regexp.MustCompile(`network=\{[^}]*` + regexp.QuoteMeta(`ssid="`+ssid+`"`) + `[^}]*\}\s*`)
}

// RemoveNetwork removes every network block whose body contains
// ssid="<ssid>", along with the whitespace that follows it. Other fields of
// a removed block are discarded, not merged.
func RemoveNetwork(content, ssid string) string {
	return networkPattern(ssid).ReplaceAllString(content, "")
}

// ReplaceNetwork removes any block for ssid and appends block at the end,
// separated by a blank line.
func ReplaceNetwork(content, ssid, block string) string {
	content = RemoveNetwork(content, ssid)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + strings.TrimSpace(block) + "\n"
}
