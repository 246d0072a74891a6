// Package tui implements the terminal user interface of the ZeroStock
// configuration wizard.
//
// The wizard is a Bubble Tea program with two screens:
//   - Discovery: scans for config daemons over mDNS, or takes a host:port
//     typed by the user, and lists the displays as cards
//   - Dashboard: reads the selected display's settings and wireless state,
//     edits fields in place, and applies all edits as one write request
//
// All screens use RenderApplicationContainer for the shared header and
// help footer.
//
// # Usage Example
//
//	app := tui.NewAppModel(tui.Options{
//	    Scan:        scanner.ScanForDevices,
//	    ScanTimeout: scanner.Timeout,
//	})
//	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
//	    return err
//	}
//
// # Applying
//
// Edits are kept as text until 'a' is pressed. They are then validated
// with the same rules the daemon uses, a network change is confirmed, and
// the request is sent through deviceconfig.Client. Settings are read back
// until they match; the wireless state is not checked because the link
// may still be changing.
package tui
