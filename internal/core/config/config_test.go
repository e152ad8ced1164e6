package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REACTIONS_BASE_URL", "REACTIONS_CACHE_NAME", "REACTIONS_API_KEY",
		"REACTIONS_EVENT_NAME", "REACTIONS_WEB_URL", "REACTIONS_STORAGE_DRIVER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, "Live Event", cfg.Event.Name)
	assert.Equal(t, 3*time.Second, cfg.Cooldown.Window)
	assert.Equal(t, 3*time.Second, cfg.Cooldown.SenderWindow)
	assert.Equal(t, 10*time.Second, cfg.Cooldown.PurgeInterval)
	assert.Equal(t, 5*time.Minute, cfg.Transport.PollTimeout)
	assert.Equal(t, time.Second, cfg.Transport.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Transport.MaxDelay)
	assert.Equal(t, 10, cfg.Transport.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Counters.TTL)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, []string{"**"}, cfg.Sessions.Allow)
	assert.Equal(t, filepath.Join(dataDir, "device.json"), cfg.StorageFile())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
remote:
  base_url: https://file.example.com
  cache_name: from-file
event:
  name: Keynote
cooldown:
  window: 5s
transport:
  max_attempts: 4
storage:
  driver: sqlite
sessions:
  allow: ["evt-*"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("REACTIONS_API_KEY", "env-key")
	t.Setenv("REACTIONS_CACHE_NAME", "from-env")

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "from-env", cfg.Remote.CacheName, "env overrides file")
	assert.Equal(t, "env-key", cfg.Remote.APIKey)
	assert.Equal(t, "Keynote", cfg.Event.Name)
	assert.Equal(t, 5*time.Second, cfg.Cooldown.Window)
	assert.Equal(t, 3*time.Second, cfg.Cooldown.SenderWindow)
	assert.Equal(t, 4, cfg.Transport.MaxAttempts)
	assert.Equal(t, []string{"evt-*"}, cfg.Sessions.Allow)
	assert.Equal(t, filepath.Join(dir, "device.db"), cfg.StorageFile())
	assert.NoError(t, cfg.RequireRemote())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "remote: [\n"},
		{name: "unknown driver", content: "storage:\n  driver: redis\n"},
		{name: "delay inversion", content: "transport:\n  base_delay: 1m\n  max_delay: 10s\n"},
		{name: "negative attempts", content: "transport:\n  max_attempts: -1\n"},
		{name: "hook event", content: "hooks:\n  - on: join\n    commands: [\"true\"]\n"},
		{name: "hook emoji", content: "hooks:\n  - on: reaction\n    emoji: [wave]\n    commands: [\"true\"]\n"},
		{name: "hook without commands", content: "hooks:\n  - on: reset\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path, dir)
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresDataDir(t *testing.T) {
	clearEnv(t)
	_, err := Load("", "")
	assert.Error(t, err)
}

func TestJoinURL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.JoinURL("evt-1"))

	cfg.Event.WebURL = "https://events.example.com/"
	assert.Equal(t, "https://events.example.com/reactions/evt-1", cfg.JoinURL("evt-1"))
}
