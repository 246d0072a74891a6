// Package discovery finds config daemons on the local network with mDNS.
//
// The daemon registers a "_zerostock._tcp" service whose TXT record names
// its endpoints:
//
//	path=/config     read and write endpoint
//	ws=/ws           websocket write and notify endpoint
//	version=v1.2.0   daemon version
//	tls=1            present when the daemon serves HTTPS
//
// Scanner browses for that service type and turns each answer into a
// Device, which knows how to build the endpoint URLs.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d, d.WebSocketURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
