// Package config handles configuration loading and validation for reactions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/reactions/internal/core/reaction"
)

// Storage drivers for device-local state.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Event     EventConfig     `yaml:"event"`
	Cooldown  CooldownConfig  `yaml:"cooldown"`
	Transport TransportConfig `yaml:"transport"`
	Counters  CountersConfig  `yaml:"counters"`
	Storage   StorageConfig   `yaml:"storage"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Hooks     []Hook          `yaml:"hooks"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// RemoteConfig addresses the hosted topic bus and cache.
type RemoteConfig struct {
	BaseURL   string `yaml:"base_url"   env:"REACTIONS_BASE_URL"`
	CacheName string `yaml:"cache_name" env:"REACTIONS_CACHE_NAME"`
	APIKey    string `yaml:"api_key"    env:"REACTIONS_API_KEY"`
}

// EventConfig describes the live event shown on the control surface.
type EventConfig struct {
	Name   string `yaml:"name"    env:"REACTIONS_EVENT_NAME"`
	WebURL string `yaml:"web_url" env:"REACTIONS_WEB_URL"`
}

// CooldownConfig holds both rate limiting windows.
type CooldownConfig struct {
	// Window is the device self-throttle between sends.
	Window time.Duration `yaml:"window"`
	// SweepInterval is how often expired device state is cleared.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// SenderWindow suppresses repeated reactions from one remote sender.
	SenderWindow time.Duration `yaml:"sender_window"`
	// PurgeInterval is how often stale remote sender entries are dropped.
	PurgeInterval time.Duration `yaml:"purge_interval"`
	// DisableSenderTracking forwards every valid remote reaction.
	DisableSenderTracking bool `yaml:"disable_sender_tracking"`
}

// TransportConfig tunes long-polling and reconnection.
type TransportConfig struct {
	PollTimeout time.Duration `yaml:"poll_timeout"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// CountersConfig controls the remote tally records.
type CountersConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// StorageConfig selects where device state lives.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"REACTIONS_STORAGE_DRIVER"`
}

// SessionsConfig restricts which sessions this device may join.
type SessionsConfig struct {
	// Allow holds glob patterns matched against session ids.
	Allow []string `yaml:"allow"`
}

// Hook events.
const (
	HookOnReaction = "reaction"
	HookOnReset    = "reset"
)

// Hook runs shell commands when watch sees a matching event. Commands are
// templates rendered with the event.
type Hook struct {
	On string `yaml:"on"`

	// Emoji limits a reaction hook to these emoji types. Empty matches all.
	Emoji    []string `yaml:"emoji"`
	Commands []string `yaml:"commands"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Event: EventConfig{
			Name: "Live Event",
		},
		Cooldown: CooldownConfig{
			Window:        3 * time.Second,
			SweepInterval: 5 * time.Second,
			SenderWindow:  3 * time.Second,
			PurgeInterval: 10 * time.Second,
		},
		Transport: TransportConfig{
			PollTimeout: 5 * time.Minute,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			MaxAttempts: 10,
		},
		Counters: CountersConfig{
			TTL: time.Hour,
		},
		Storage: StorageConfig{
			Driver: DriverJSON,
		},
		Sessions: SessionsConfig{
			Allow: []string{"**"},
		},
	}
}

// Load reads configuration from the given path, applies environment
// overrides and sets the data directory. If configPath is empty or doesn't
// exist, defaults are used.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.DataDir = dataDir

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Event.Name == "" {
		c.Event.Name = defaults.Event.Name
	}
	if c.Cooldown.Window == 0 {
		c.Cooldown.Window = defaults.Cooldown.Window
	}
	if c.Cooldown.SweepInterval == 0 {
		c.Cooldown.SweepInterval = defaults.Cooldown.SweepInterval
	}
	if c.Cooldown.SenderWindow == 0 {
		c.Cooldown.SenderWindow = defaults.Cooldown.SenderWindow
	}
	if c.Cooldown.PurgeInterval == 0 {
		c.Cooldown.PurgeInterval = defaults.Cooldown.PurgeInterval
	}
	if c.Transport.PollTimeout == 0 {
		c.Transport.PollTimeout = defaults.Transport.PollTimeout
	}
	if c.Transport.BaseDelay == 0 {
		c.Transport.BaseDelay = defaults.Transport.BaseDelay
	}
	if c.Transport.MaxDelay == 0 {
		c.Transport.MaxDelay = defaults.Transport.MaxDelay
	}
	if c.Transport.MaxAttempts == 0 {
		c.Transport.MaxAttempts = defaults.Transport.MaxAttempts
	}
	if c.Counters.TTL == 0 {
		c.Counters.TTL = defaults.Counters.TTL
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if len(c.Sessions.Allow) == 0 {
		c.Sessions.Allow = defaults.Sessions.Allow
	}
}

// Validate checks that the configuration is structurally valid. Remote
// credentials are checked separately by RequireRemote since only commands
// that reach the network need them.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Cooldown.Window < 0 || c.Cooldown.SenderWindow < 0 {
		return fmt.Errorf("cooldown windows cannot be negative")
	}

	if c.Transport.MaxAttempts < 1 {
		return fmt.Errorf("transport.max_attempts must be at least 1")
	}

	if c.Transport.BaseDelay > c.Transport.MaxDelay {
		return fmt.Errorf("transport.base_delay cannot exceed transport.max_delay")
	}

	if !isValidDriver(c.Storage.Driver) {
		return fmt.Errorf("storage.driver %q is not one of %q, %q", c.Storage.Driver, DriverJSON, DriverSQLite)
	}

	for i, h := range c.Hooks {
		if h.On != HookOnReaction && h.On != HookOnReset {
			return fmt.Errorf("hooks[%d].on must be %q or %q", i, HookOnReaction, HookOnReset)
		}
		for _, e := range h.Emoji {
			if !reaction.IsValidEmojiType(e) {
				return fmt.Errorf("hooks[%d].emoji: unknown emoji type %q", i, e)
			}
		}
		if len(h.Commands) == 0 {
			return fmt.Errorf("hooks[%d].commands cannot be empty", i)
		}
	}

	return nil
}

// StorageFile returns the path of the device state file for the configured
// driver.
func (c *Config) StorageFile() string {
	if c.Storage.Driver == DriverSQLite {
		return filepath.Join(c.DataDir, "device.db")
	}
	return filepath.Join(c.DataDir, "device.json")
}

// JoinURL returns the audience link for sessionID, or "" when no web URL is
// configured.
func (c *Config) JoinURL(sessionID string) string {
	if c.Event.WebURL == "" {
		return ""
	}
	return strings.TrimRight(c.Event.WebURL, "/") + "/reactions/" + sessionID
}

func isValidDriver(driver string) bool {
	switch driver {
	case DriverJSON, DriverSQLite:
		return true
	default:
		return false
	}
}
