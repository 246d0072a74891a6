package syscmd

// ToolCheck is the result of checking a single external tool.
type ToolCheck struct {
	// Name is the executable name
	Name string
	// Available indicates whether it was found
	Available bool
	// Path is the resolved path when available
	Path string
	// Purpose says what the tool is used for
	Purpose string
}

// KnownTools lists every external tool the daemon may call, in the order
// they are tried.
var KnownTools = []ToolCheck{
	{Name: "nmcli", Purpose: "read wifi state, connect to networks"},
	{Name: "iwgetid", Purpose: "read the active SSID without NetworkManager"},
	{Name: "wpa_passphrase", Purpose: "derive a network block for wpa_supplicant"},
	{Name: "wpa_cli", Purpose: "reload wpa_supplicant after a rewrite"},
	{Name: "systemctl", Purpose: "restart the display service"},
}

// CheckTools resolves each known tool through r.
func CheckTools(r Runner) []ToolCheck {
	checks := make([]ToolCheck, 0, len(KnownTools))
	for _, t := range KnownTools {
		check := t
		if path, err := r.LookPath(t.Name); err == nil {
			check.Available = true
			check.Path = path
		}
		checks = append(checks, check)
	}
	return checks
}
