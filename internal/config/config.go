package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "adalight"
	configFile = "config.yaml"
)

// Config is the complete receiver configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Strip    StripConfig    `yaml:"strip"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// SerialConfig describes the host-facing serial link.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// StripConfig describes the physical LED strip.
type StripConfig struct {
	Length   int  `yaml:"length"`
	Reversed bool `yaml:"reversed"`
}

// ProtocolConfig describes framing and watchdog behavior.
type ProtocolConfig struct {
	// Magic is the frame marker byte sequence.
	Magic string `yaml:"magic"`
	// TimeoutMs is the inactivity window before the strip is blanked.
	// Zero disables blanking.
	TimeoutMs int `yaml:"timeout_ms"`
	// Ack is the liveness payload sent to the host roughly once per second.
	Ack string `yaml:"ack"`
	// AckIntervalMs is the liveness cadence.
	AckIntervalMs int `yaml:"ack_interval_ms"`
	// DrainAfterFrame discards buffered inbound bytes after each commit.
	DrainAfterFrame bool `yaml:"drain_after_frame"`
}

// MonitorConfig describes the optional WebSocket monitor server.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	MDNS    bool   `yaml:"mdns"`
}

// Default returns a configuration matching a stock Adalight setup.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Strip: StripConfig{
			Length: 60,
		},
		Protocol: ProtocolConfig{
			Magic:         "Ada",
			TimeoutMs:     5000,
			Ack:           "Ada\n",
			AckIntervalMs: 1000,
		},
		Monitor: MonitorConfig{
			Listen: ":8420",
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
//   - Linux: $XDG_CONFIG_HOME/adalight or $HOME/.config/adalight
//   - macOS: $HOME/.config/adalight
//   - Windows: %LOCALAPPDATA%\adalight
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// DefaultPath returns the full path of the default configuration file.
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration from path. An empty path means the default
// location; a missing file at the default location yields Default(). A file
// explicitly named but unreadable is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges. Zero timeout is valid (blanking disabled).
func (c *Config) Validate() error {
	if c.Strip.Length < 1 {
		return fmt.Errorf("strip.length must be at least 1, got %d", c.Strip.Length)
	}
	if len(c.Protocol.Magic) == 0 {
		return fmt.Errorf("protocol.magic must not be empty")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Protocol.TimeoutMs < 0 {
		return fmt.Errorf("protocol.timeout_ms must not be negative, got %d", c.Protocol.TimeoutMs)
	}
	if c.Protocol.AckIntervalMs <= 0 {
		return fmt.Errorf("protocol.ack_interval_ms must be positive, got %d", c.Protocol.AckIntervalMs)
	}
	if c.Monitor.Enabled && c.Monitor.Listen == "" {
		return fmt.Errorf("monitor.listen must be set when the monitor is enabled")
	}
	return nil
}

// MagicBytes returns the frame marker as raw bytes.
func (c *Config) MagicBytes() []byte { return []byte(c.Protocol.Magic) }

// AckBytes returns the liveness payload as raw bytes.
func (c *Config) AckBytes() []byte { return []byte(c.Protocol.Ack) }

// Timeout returns the inactivity window as a duration (0 = disabled).
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Protocol.TimeoutMs) * time.Millisecond
}

// AckInterval returns the liveness cadence as a duration.
func (c *Config) AckInterval() time.Duration {
	return time.Duration(c.Protocol.AckIntervalMs) * time.Millisecond
}
