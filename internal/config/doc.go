// Package config loads configuration for both binaries.
//
// # Daemon
//
// zerostock-cfgd settings come from viper, lowest precedence first:
// built-in defaults, /etc/zerostock/cfgd.yaml (or --config), ZEROSTOCK_*
// environment variables with dots replaced by underscores, then flags bound
// with BindPFlag.
//
//	settings:
//	  path: /home/pi/zero-stock-screen/configuration.cfg
//	  owner_user: pi
//	  owner_group: pi
//	  new_file_mode: "0644"
//	service:
//	  name: stock-screen.service
//	wifi:
//	  interface: wlan0
//	  supplicant_path: /etc/wpa_supplicant/wpa_supplicant.conf
//	tools:
//	  timeout: 0s
//	listen:
//	  port: 8080
//
// # Client registry
//
// zerostock-cfg remembers daemons in a YAML file:
//   - Linux: $XDG_CONFIG_HOME/zerostock/devices.yaml or $HOME/.config/zerostock/devices.yaml
//   - macOS: $HOME/.config/zerostock/devices.yaml
//   - Windows: %LOCALAPPDATA%\zerostock\devices.yaml
//
// WiFi passphrases are never written to the registry.
package config
