// Package config handles configuration management using Viper, mirroring
// the recognized option surface for the RemoteDesktop control plane.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the portal's full configuration surface.
type Config struct {
	MaxSessions int             `mapstructure:"max_sessions"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Consent     ConsentConfig   `mapstructure:"consent"`
	Capture     CaptureConfig   `mapstructure:"capture"`
	Probe       ProbeConfig     `mapstructure:"probe"`
	Sink        SinkConfig      `mapstructure:"sink"`
}

// BucketConfig configures a single token bucket.
type BucketConfig struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int64   `mapstructure:"burst"`
}

// RateLimitConfig holds the per-device-class bucket settings.
type RateLimitConfig struct {
	Keyboard BucketConfig `mapstructure:"keyboard"`
	Pointer  BucketConfig `mapstructure:"pointer"`
	Touch    BucketConfig `mapstructure:"touch"`
}

// ConsentConfig selects and bounds the consent provider.
type ConsentConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Provider       string `mapstructure:"provider"` // auto | interactive | programmatic
}

// Timeout returns the consent timeout as a time.Duration.
func (c ConsentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CaptureConfig restricts tier selection.
type CaptureConfig struct {
	TierOverride string `mapstructure:"tier_override"` // auto | pipewire | dmabuf | shm | cpu | none
}

// ProbeConfig bounds capability discovery.
type ProbeConfig struct {
	BudgetMS int `mapstructure:"budget_ms"`
}

// Budget returns the probe budget as a time.Duration.
func (p ProbeConfig) Budget() time.Duration {
	return time.Duration(p.BudgetMS) * time.Millisecond
}

// SinkConfig bounds the outbound event channel.
type SinkConfig struct {
	QueueCapacity int `mapstructure:"queue_capacity"`
}

// DefaultConfig matches spec.md §6.3's documented defaults exactly.
var DefaultConfig = Config{
	MaxSessions: 10,
	RateLimit: RateLimitConfig{
		Keyboard: BucketConfig{Rate: 1000, Burst: 100},
		Pointer:  BucketConfig{Rate: 1000, Burst: 100},
		Touch:    BucketConfig{Rate: 500, Burst: 50},
	},
	Consent: ConsentConfig{
		TimeoutSeconds: 30,
		Provider:       "interactive",
	},
	Capture: CaptureConfig{
		TierOverride: "auto",
	},
	Probe: ProbeConfig{
		BudgetMS: 500,
	},
	Sink: SinkConfig{
		QueueCapacity: 256,
	},
}

var cfg *Config

// Init loads waymon-portal.toml, searching the system (/etc/waymon),
// user ($HOME/.config/waymon, or SUDO_USER's home under sudo) and
// current directories in that order (the teacher's lookup order). Viper
// reads only the first file it finds, so an earlier location wins over a
// later one. Anything left unset takes DefaultConfig's value.
func Init() error {
	viper.SetConfigName("waymon-portal")
	viper.SetConfigType("toml")

	viper.AddConfigPath("/etc/waymon")

	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/waymon", sudoUser))
	} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
		viper.AddConfigPath(filepath.Join(home, ".config", "waymon"))
	}

	viper.AddConfigPath(".")

	viper.SetDefault("max_sessions", DefaultConfig.MaxSessions)
	viper.SetDefault("rate_limit", DefaultConfig.RateLimit)
	viper.SetDefault("consent", DefaultConfig.Consent)
	viper.SetDefault("capture", DefaultConfig.Capture)
	viper.SetDefault("probe", DefaultConfig.Probe)
	viper.SetDefault("sink", DefaultConfig.Sink)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// Get returns the current configuration, or DefaultConfig if Init has
// not been called (e.g. in unit tests).
func Get() *Config {
	if cfg == nil {
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Save writes the current configuration to GetConfigPath().
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetConfigPath returns the path the config was (or would be) loaded
// from, preferring the system path when running as root or under sudo.
func GetConfigPath() string {
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}
	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/waymon/waymon-portal.toml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/waymon/waymon-portal.toml"
	}
	return filepath.Join(home, ".config", "waymon", "waymon-portal.toml")
}
