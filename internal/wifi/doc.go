// Package wifi reads and changes the Pi's wireless configuration.
//
// Reader resolves the active SSID, its passphrase and a readable status.
// Each field is looked up on its own through an ordered list of sources,
// NetworkManager (nmcli) first, then iwgetid or wpa_supplicant.conf. A
// field that cannot be resolved is left empty; nothing is defaulted.
//
// Provisioner joins a network with "nmcli dev wifi connect". When nmcli is
// not installed at all it falls back to the classic setup: wpa_passphrase
// derives a network block, any block for the same SSID is cut out of
// wpa_supplicant.conf, the new block is appended, the file is replaced
// atomically and "wpa_cli reconfigure" reloads the daemon.
//
// The credential file helpers only understand single-level
// "network={ ... }" blocks with one ssid line each. Files with nested
// braces or repeated ssid lines are handled in whatever way the patterns
// happen to match.
package wifi
