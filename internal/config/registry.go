package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/zerostock/internal/cfgfile"
)

const (
	appName      = "zerostock"
	registryFile = "devices.yaml"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for the client:
//   - Linux: $XDG_CONFIG_HOME/zerostock or $HOME/.config/zerostock
//   - macOS: $HOME/.config/zerostock
//   - Windows: %LOCALAPPDATA%\zerostock
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetRegistryPath returns the full path to the device registry file.
func GetRegistryPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, registryFile), nil
}

// LoadRegistry loads the registry from its default location.
// If the file doesn't exist, returns a new default registry.
// Thread-safe - multiple calls will return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		path, err := GetRegistryPath()
		if err != nil {
			globalRegistryErr = fmt.Errorf("failed to get registry path: %w", err)
			return
		}
		globalRegistry, globalRegistryErr = LoadRegistryFile(path)
	})
	return globalRegistry, globalRegistryErr
}

// LoadRegistryFile reads a registry from path. A missing file yields a new
// default registry.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	if registry.Version != 1 {
		return nil, fmt.Errorf("unsupported registry version: %d (expected 1)", registry.Version)
	}

	if registry.Devices == nil {
		registry.Devices = make(map[string]*Device)
	}
	if registry.Preferences == nil {
		registry.Preferences = &Preferences{DiscoverTimeout: defaultDiscoverTimeout}
	}

	return &registry, nil
}

// Save writes the registry to its default location.
func (r *Registry) Save() error {
	path, err := GetRegistryPath()
	if err != nil {
		return fmt.Errorf("failed to get registry path: %w", err)
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to path atomically.
func (r *Registry) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	header := []byte(`# ZeroStock device registry
# Daemons found by "zerostock-cfg scan". WiFi passphrases are never stored here.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	outcomes, err := cfgfile.WriteFileAtomic(path, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to save registry file: %w", err)
	}
	for _, o := range outcomes {
		o.Log()
	}
	return nil
}

// ReloadRegistry reloads the registry from disk, discarding any in-memory changes.
func ReloadRegistry() (*Registry, error) {
	globalRegistryOnce = sync.Once{}
	return LoadRegistry()
}

func splitAddress(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}
