package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/muurk/zerostock/internal/cfgfile"
	"github.com/muurk/zerostock/internal/service"
	"github.com/muurk/zerostock/internal/wifi"
)

// Daemon configuration sources, lowest precedence first: defaults, the
// YAML file, ZEROSTOCK_* environment variables, bound command-line flags.
const (
	DaemonConfigName = "cfgd"
	DaemonConfigDir  = "/etc/zerostock"
	EnvPrefix        = "ZEROSTOCK"
)

// Daemon keys
const (
	KeySettingsPath      = "settings.path"
	KeySettingsOwnerUser = "settings.owner_user"
	KeySettingsOwnerGrp  = "settings.owner_group"
	KeySettingsNewMode   = "settings.new_file_mode"
	KeyServiceName       = "service.name"
	KeyWiFiInterface     = "wifi.interface"
	KeyWiFiSupplicant    = "wifi.supplicant_path"
	KeyToolsTimeout      = "tools.timeout"
	KeyListenHost        = "listen.host"
	KeyListenPort        = "listen.port"
	KeyListenCert        = "listen.cert"
	KeyListenKey         = "listen.key"
	KeyAdvertiseEnabled  = "advertise.enabled"
	KeyAdvertiseInstance = "advertise.instance"
	KeyWatchEnabled      = "watch.enabled"
	KeyLogLevel          = "log_level"
)

// DefaultSettingsPath is where the display service reads its settings.
const DefaultSettingsPath = "/home/pi/zero-stock-screen/configuration.cfg"

// Daemon is the resolved configuration of zerostock-cfgd.
type Daemon struct {
	Settings struct {
		Path        string `mapstructure:"path"`
		OwnerUser   string `mapstructure:"owner_user"`
		OwnerGroup  string `mapstructure:"owner_group"`
		NewFileMode string `mapstructure:"new_file_mode"`
	} `mapstructure:"settings"`

	Service struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"service"`

	WiFi struct {
		Interface      string `mapstructure:"interface"`
		SupplicantPath string `mapstructure:"supplicant_path"`
	} `mapstructure:"wifi"`

	Tools struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"tools"`

	Listen struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
	} `mapstructure:"listen"`

	Advertise struct {
		Enabled  bool   `mapstructure:"enabled"`
		Instance string `mapstructure:"instance"`
	} `mapstructure:"advertise"`

	Watch struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"watch"`

	LogLevel string `mapstructure:"log_level"`

	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// SetDaemonDefaults registers every key with its default. Keys need a
// default for AutomaticEnv to reach them through Unmarshal.
func SetDaemonDefaults(v *viper.Viper) {
	v.SetDefault(KeySettingsPath, DefaultSettingsPath)
	v.SetDefault(KeySettingsOwnerUser, "pi")
	v.SetDefault(KeySettingsOwnerGrp, "pi")
	v.SetDefault(KeySettingsNewMode, "0644")
	v.SetDefault(KeyServiceName, service.DefaultName)
	v.SetDefault(KeyWiFiInterface, wifi.DefaultInterface)
	v.SetDefault(KeyWiFiSupplicant, wifi.DefaultSupplicantPath)
	v.SetDefault(KeyToolsTimeout, "0s")
	v.SetDefault(KeyListenHost, "")
	v.SetDefault(KeyListenPort, 8080)
	v.SetDefault(KeyListenCert, "")
	v.SetDefault(KeyListenKey, "")
	v.SetDefault(KeyAdvertiseEnabled, true)
	v.SetDefault(KeyAdvertiseInstance, "ZeroStock Config")
	v.SetDefault(KeyWatchEnabled, true)
	v.SetDefault(KeyLogLevel, "info")
}

// NewDaemonViper returns a viper instance with defaults and environment
// lookup configured. Callers bind their flags to it before LoadDaemon.
func NewDaemonViper() *viper.Viper {
	v := viper.New()
	SetDaemonDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDaemon reads the configuration file and decodes every source into a
// Daemon. An explicit configFile must exist; otherwise cfgd.yaml is looked
// up in /etc/zerostock and the working directory, and may be absent.
func LoadDaemon(v *viper.Viper, configFile string) (*Daemon, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DaemonConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(DaemonConfigDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var d Daemon
	if err := v.Unmarshal(&d); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	d.ConfigFile = v.ConfigFileUsed()

	// YAML reads an unquoted 0644 as the integer 420.
	if n, ok := v.Get(KeySettingsNewMode).(int); ok {
		d.Settings.NewFileMode = "0" + strconv.FormatInt(int64(n), 8)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks values viper cannot type-check.
func (d *Daemon) Validate() error {
	if d.Settings.Path == "" {
		return fmt.Errorf("%s must not be empty", KeySettingsPath)
	}
	if _, err := d.NewFileMode(); err != nil {
		return err
	}
	if d.Listen.Port < 0 || d.Listen.Port > 65535 {
		return fmt.Errorf("%s out of range: %d", KeyListenPort, d.Listen.Port)
	}
	if (d.Listen.Cert == "") != (d.Listen.Key == "") {
		return fmt.Errorf("%s and %s must be set together", KeyListenCert, KeyListenKey)
	}
	if d.Tools.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyToolsTimeout)
	}
	return nil
}

// NewFileMode parses settings.new_file_mode as an octal permission.
func (d *Daemon) NewFileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(d.Settings.NewFileMode, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, fmt.Errorf("%s must be an octal permission, got %q", KeySettingsNewMode, d.Settings.NewFileMode)
	}
	return os.FileMode(mode), nil
}

// Target returns the settings file handle passed to the patcher.
func (d *Daemon) Target() cfgfile.Target {
	mode, _ := d.NewFileMode()
	return cfgfile.Target{
		Path:        d.Settings.Path,
		OwnerUser:   d.Settings.OwnerUser,
		OwnerGroup:  d.Settings.OwnerGroup,
		NewFileMode: mode,
	}
}

// WiFiOptions returns the wireless options passed to reader and provisioner.
func (d *Daemon) WiFiOptions() wifi.Options {
	return wifi.Options{
		Interface:      d.WiFi.Interface,
		SupplicantPath: d.WiFi.SupplicantPath,
	}
}
