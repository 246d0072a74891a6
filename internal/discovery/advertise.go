package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
)

// DefaultInstance is the instance name the daemon advertises
const DefaultInstance = "ZeroStock Config"

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// TxtRecords builds the TXT record published for a daemon.
func TxtRecords(configPath, wsPath, version string, tls bool) []string {
	txt := []string{
		TxtPath + "=" + configPath,
		TxtWS + "=" + wsPath,
		TxtVersion + "=" + version,
	}
	if tls {
		txt = append(txt, TxtTLS+"=1")
	}
	return txt
}

// Advertise registers the daemon on every multicast interface.
func Advertise(instance string, port int, txt []string) (*Advertisement, error) {
	if instance == "" {
		instance = DefaultInstance
	}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn")
}
