package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/reactions/internal/core/validate"
	"github.com/hay-kot/reactions/pkg/tmpl"
)

// ErrSessionNotAllowed is returned by CheckSession for ids outside the
// sessions.allow patterns.
var ErrSessionNotAllowed = errors.New("session not allowed by sessions.allow")

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// RequireRemote checks the settings needed to reach the hosted service.
func (c *Config) RequireRemote() error {
	var errs criterio.FieldErrorsBuilder

	if c.Remote.APIKey == "" {
		errs = errs.Append("remote.api_key", fmt.Errorf("is required (set REACTIONS_API_KEY)"))
	}
	if c.Remote.CacheName == "" {
		errs = errs.Append("remote.cache_name", fmt.Errorf("is required (set REACTIONS_CACHE_NAME)"))
	}
	if c.Remote.BaseURL == "" {
		errs = errs.Append("remote.base_url", fmt.Errorf("is required (set REACTIONS_BASE_URL)"))
	} else if err := checkURL(c.Remote.BaseURL); err != nil {
		errs = errs.Append("remote.base_url", err)
	}

	return errs.ToError()
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks remote settings, session patterns and file
// access.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	errs = c.validateFileAccess(errs, configPath)

	var remote criterio.FieldErrors
	if err := c.RequireRemote(); errors.As(err, &remote) {
		for _, fe := range remote {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	if err := validate.SessionName(c.Event.Name); err != nil {
		errs = errs.Append("event.name", err)
	}
	if c.Event.WebURL != "" {
		if err := checkURL(c.Event.WebURL); err != nil {
			errs = errs.Append("event.web_url", err)
		}
	}

	if err := c.Validate(); err != nil {
		errs = errs.Append("config", err)
	}

	for i, pattern := range c.Sessions.Allow {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("sessions.allow[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}

	for i, h := range c.Hooks {
		for j, command := range h.Commands {
			if _, err := tmpl.Compile(command); err != nil {
				errs = errs.Append(fmt.Sprintf("hooks[%d].commands[%d]", i, j), err)
			}
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues, such as settings that disable a
// safeguard.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Cooldown.DisableSenderTracking {
		warnings = append(warnings, ValidationWarning{
			Category: "Cooldown",
			Item:     "disable_sender_tracking",
			Message:  "remote senders are not rate limited; floods reach the display",
		})
	}

	if c.Cooldown.PurgeInterval > 0 && c.Cooldown.PurgeInterval < c.Cooldown.SenderWindow {
		warnings = append(warnings, ValidationWarning{
			Category: "Cooldown",
			Item:     "purge_interval",
			Message:  "shorter than sender_window; entries are purged no sooner than twice the window",
		})
	}

	if c.Event.WebURL == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Event",
			Item:     "web_url",
			Message:  "not set; join links cannot be generated",
		})
	}

	return warnings
}

// CheckSession validates id and reports whether sessions.allow permits it.
func (c *Config) CheckSession(id string) error {
	if err := validate.SessionID(id); err != nil {
		return err
	}
	for _, pattern := range c.Sessions.Allow {
		if ok, _ := doublestar.Match(pattern, id); ok {
			return nil
		}
	}
	return fmt.Errorf("%q: %w", id, ErrSessionNotAllowed)
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(errs criterio.FieldErrorsBuilder, configPath string) criterio.FieldErrorsBuilder {
	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	return errs
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
