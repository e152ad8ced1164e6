package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/reactions/internal/core/validate"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Remote = RemoteConfig{
		BaseURL:   "https://api.cache.example.com",
		CacheName: "live",
		APIKey:    "secret",
	}
	cfg.Event.WebURL = "https://events.example.com"
	return &cfg
}

func hasField(errs criterio.FieldErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep("")
	assert.NoError(t, err, "expected valid config")
}

func TestValidateDeep_MissingRemote(t *testing.T) {
	cfg := validConfig(t)
	cfg.Remote = RemoteConfig{}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 3)
	assert.True(t, hasField(fieldErrs, "remote.api_key"))
	assert.True(t, hasField(fieldErrs, "remote.cache_name"))
	assert.True(t, hasField(fieldErrs, "remote.base_url"))
}

func TestValidateDeep_BadURLs(t *testing.T) {
	cfg := validConfig(t)
	cfg.Remote.BaseURL = "ftp://cache.example.com"
	cfg.Event.WebURL = "not a url"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.True(t, hasField(fieldErrs, "remote.base_url"))
	assert.True(t, hasField(fieldErrs, "event.web_url"))
}

func TestValidateDeep_BlankEventName(t *testing.T) {
	cfg := validConfig(t)
	cfg.Event.Name = "   "

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "event.name", fieldErrs[0].Field)
}

func TestValidateDeep_InvalidSessionPattern(t *testing.T) {
	cfg := validConfig(t)
	cfg.Sessions.Allow = []string{"evt-*", "[unclosed"}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "sessions.allow[1]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "invalid glob")
}

func TestValidateDeep_HookTemplate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Hooks = []Hook{
		{On: HookOnReaction, Emoji: []string{"fire"}, Commands: []string{"echo {{ .SenderID | shq }}", "echo {{ .SenderID"}},
	}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "hooks[0].commands[1]", fieldErrs[0].Field)
}

func TestValidateDeep_StructuralError(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Driver = "postgres"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, hasField(fieldErrs, "config"))
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := validConfig(t)
	cfg.DataDir = tmpFile

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, hasField(fieldErrs, "data_dir"), "expected error about data dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, hasField(fieldErrs, "config_file"), "expected error about config file being a directory")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Cooldown.DisableSenderTracking = true
	cfg.Event.WebURL = ""

	items := map[string]bool{}
	for _, w := range cfg.Warnings() {
		items[w.Item] = true
	}
	assert.True(t, items["disable_sender_tracking"])
	assert.True(t, items["web_url"])
}

func TestCheckSession(t *testing.T) {
	cfg := validConfig(t)
	cfg.Sessions.Allow = []string{"evt-*", "keynote_??"}

	tests := []struct {
		id      string
		wantErr error
	}{
		{id: "evt-1"},
		{id: "keynote_01"},
		{id: "standup", wantErr: ErrSessionNotAllowed},
		{id: "evt-", wantErr: validate.ErrInvalidSessionID},
		{id: "x", wantErr: validate.ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := cfg.CheckSession(tt.id)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckSession_DefaultAllowsAll(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.CheckSession("anything-goes_42"))
}
