package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"wifictl/internal/logger"
	"wifictl/internal/probe"
	"wifictl/internal/registry"
	"wifictl/internal/supervisor"
	"wifictl/internal/wifi"
)

const (
	DefaultInterface      = "wlan0"
	DefaultDriver         = wifi.KindWpaCli
	DefaultCommandTimeout = 5 * time.Second
	DefaultScanSettle     = wifi.DefaultScanSettle
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultLEDRoot        = "/sys/class/leds"
	DefaultMQTTTopic      = "wifictl/status"
	DefaultMQTTClientID   = "wifictl"
)

// Config is the wifictl daemon configuration.
type Config struct {
	Interface      string              `yaml:"interface" default:"wlan0"`
	Driver         string              `yaml:"driver" default:"wpa_cli"`
	CommandTimeout time.Duration       `yaml:"command_timeout" default:"5s"`
	ScanSettle     time.Duration       `yaml:"scan_settle" default:"3s"`
	PollInterval   time.Duration       `yaml:"poll_interval" default:"100ms"`
	MaxNetworks    int                 `yaml:"max_networks" default:"10"`
	Networks       []Network           `yaml:"networks"`
	Supervisor     SupervisorConfig    `yaml:"supervisor"`
	InternetCheck  InternetCheckConfig `yaml:"internet_check"`
	Feedback       FeedbackConfig      `yaml:"feedback"`
	API            APIConfig           `yaml:"api"`
	Log            LogConfig           `yaml:"log"`
}

// Network is one pre-shared credential. An empty secret means an open
// network.
type Network struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret,omitempty"`
}

type SupervisorConfig struct {
	ConnectTimeout   time.Duration `yaml:"connect_timeout" default:"15s"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff" default:"30s"`
	RefreshInterval  time.Duration `yaml:"refresh_interval" default:"1h"`
	AggressiveScan   bool          `yaml:"aggressive_scan"`
}

type InternetCheckConfig struct {
	Enabled *bool         `yaml:"enabled,omitempty" default:"true"`
	Method  string        `yaml:"method" default:"tcp"`
	Host    string        `yaml:"host" default:"8.8.8.8"`
	Port    uint16        `yaml:"port" default:"53"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
}

type FeedbackConfig struct {
	LED        string     `yaml:"led,omitempty"`
	LEDRoot    string     `yaml:"led_root" default:"/sys/class/leds"`
	StatusPath string     `yaml:"status_path,omitempty"`
	EventsPath string     `yaml:"events_path,omitempty"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker,omitempty"`
	Topic    string `yaml:"topic" default:"wifictl/status"`
	ClientID string `yaml:"client_id" default:"wifictl"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type APIConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

type LogConfig struct {
	Format string `yaml:"format" default:"console"`
	Level  string `yaml:"level" default:"info"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes a YAML config file to disk. The file holds secrets, so it is
// only readable by the owner.
func Save(path string, cfg Config) error {
	if err := ApplyDefaults(&cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) error {
	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.InternetCheck.Method = strings.ToLower(strings.TrimSpace(cfg.InternetCheck.Method))
	return nil
}

// Validate checks the fields the daemon cannot run without. Credentials that
// exceed the registry bounds are not rejected here; the agent skips them.
func Validate(cfg Config) error {
	if cfg.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	switch cfg.Driver {
	case wifi.KindWpaCli, wifi.KindNmcli:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", wifi.KindWpaCli, wifi.KindNmcli, cfg.Driver)
	}
	if len(cfg.Networks) == 0 {
		return fmt.Errorf("at least one network is required")
	}
	for i, n := range cfg.Networks {
		if n.Name == "" {
			return fmt.Errorf("networks[%d].name is required", i)
		}
	}
	if cfg.MaxNetworks < 1 {
		return fmt.Errorf("max_networks must be positive")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"command_timeout", cfg.CommandTimeout},
		{"scan_settle", cfg.ScanSettle},
		{"poll_interval", cfg.PollInterval},
		{"supervisor.connect_timeout", cfg.Supervisor.ConnectTimeout},
		{"supervisor.reconnect_backoff", cfg.Supervisor.ReconnectBackoff},
		{"supervisor.refresh_interval", cfg.Supervisor.RefreshInterval},
		{"internet_check.timeout", cfg.InternetCheck.Timeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if InternetCheckEnabled(&cfg) {
		if _, err := probe.New(cfg.InternetCheck.Method); err != nil {
			return err
		}
		if cfg.InternetCheck.Host == "" {
			return fmt.Errorf("internet_check.host is required")
		}
		if cfg.InternetCheck.Port == 0 {
			return fmt.Errorf("internet_check.port is required")
		}
	}
	if cfg.Feedback.MQTT.Broker != "" && cfg.Feedback.MQTT.Topic == "" {
		return fmt.Errorf("feedback.mqtt.topic is required when a broker is set")
	}
	return logger.Validate(cfg.Log.Format, cfg.Log.Level)
}

// InternetCheckEnabled reports the internet_check.enabled switch, which
// defaults to true.
func InternetCheckEnabled(cfg *Config) bool {
	if cfg == nil || cfg.InternetCheck.Enabled == nil {
		return true
	}
	return *cfg.InternetCheck.Enabled
}

// Registry builds a credential registry from the configured networks.
// Entries the registry refuses are returned as warnings and skipped.
func Registry(cfg Config) (*registry.Registry, []error) {
	reg := registry.New(cfg.MaxNetworks)
	var skipped []error
	for i, n := range cfg.Networks {
		if _, err := reg.Register(n.Name, n.Secret); err != nil {
			skipped = append(skipped, fmt.Errorf("networks[%d] %q: %w", i, n.Name, err))
		}
	}
	return reg, skipped
}

// ApplySupervisor copies the supervisor settings onto s.
func ApplySupervisor(cfg Config, s *supervisor.Supervisor) {
	s.SetConnectTimeout(cfg.Supervisor.ConnectTimeout)
	s.SetReconnectBackoff(cfg.Supervisor.ReconnectBackoff)
	s.SetRefreshInterval(cfg.Supervisor.RefreshInterval)
	s.SetAggressiveScan(cfg.Supervisor.AggressiveScan)
	s.SetInternetCheckEnabled(InternetCheckEnabled(&cfg))
	s.SetInternetCheckHost(cfg.InternetCheck.Host)
	s.SetInternetCheckPort(cfg.InternetCheck.Port)
	s.SetInternetCheckTimeout(cfg.InternetCheck.Timeout)
}
