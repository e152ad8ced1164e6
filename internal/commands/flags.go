package commands

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/hay-kot/reactions/internal/core/config"
	"github.com/hay-kot/reactions/internal/live"
	"github.com/hay-kot/reactions/internal/pubsub"
	"github.com/hay-kot/reactions/internal/subscription"
)

// Output formats accepted by --format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Service runs send, tally and sender operations
	Service *live.Service

	// Transport carries subscriptions opened by watch and control
	Transport *pubsub.Transport
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "reactions", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "reactions")
}

// newSubscription builds a subscription over the shared transport using the
// configured sender cooldown. all disables sender suppression.
func (f *Flags) newSubscription(all bool) *subscription.Subscription {
	cfg := f.Config
	return subscription.New(f.Transport, subscription.Options{
		Window:                  cfg.Cooldown.SenderWindow,
		PurgeInterval:           cfg.Cooldown.PurgeInterval,
		DisableCooldownTracking: all || cfg.Cooldown.DisableSenderTracking,
		Logger:                  log.With().Str("component", "subscription").Logger(),
	})
}

// resolveFormat turns FormatAuto into text for terminals and JSON otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != FormatAuto && format != "" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return FormatText
	}
	return FormatJSON
}
