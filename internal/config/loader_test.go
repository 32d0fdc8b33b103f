package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datapilot.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"llm": {"provider": "anthropic", "api_key": "sk-ant", "model": "claude-sonnet-4-0"},
		"supabase": {"url": "https://x.supabase.co", "api_key": "anon", "table": "players"},
		"data_dir": "/tmp/dp"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-0", cfg.LLM.Model)
	assert.Equal(t, "https://x.supabase.co", cfg.Supabase.URL)

	// Defaults survive partial files.
	assert.Equal(t, 1000, cfg.Supabase.PageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoadDerivesHistoryPath(t *testing.T) {
	path := writeConfigFile(t, `{"data_dir": "/tmp/dp"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/dp", "history.db"), cfg.History.Path)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/dp.json", NewLoader("/etc/dp.json").GetConfigPath())
	assert.Contains(t, NewLoader("").GetConfigPath(), ".datapilot")
}

func TestWatchRequiresLoad(t *testing.T) {
	assert.Error(t, NewLoader("/tmp/none.json").Watch(func(*Config) {}))
}

func TestWatchDeliversValidReloadAndDropsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datapilot.json")
	base := `{
		"llm": {"provider": "openai", "api_key": "sk-test", "model": "gpt-4o-mini"},
		"supabase": {"url": "https://x.supabase.co", "api_key": "anon", "table": "players"},
		"data_dir": "/tmp/dp"
	}`
	require.NoError(t, os.WriteFile(path, []byte(base), 0600))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	reloads := make(chan *Config, 8)
	require.NoError(t, l.Watch(func(c *Config) { reloads <- c }))
	time.Sleep(200 * time.Millisecond) // let the watcher arm

	next := strings.Replace(base, "gpt-4o-mini", "gpt-4o", 1)
	require.NoError(t, os.WriteFile(path, []byte(next), 0600))

	select {
	case c := <-reloads:
		assert.Equal(t, "gpt-4o", c.LLM.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("valid reload was not delivered")
	}

	// A rewrite that fails validation must never reach the callback.
	// Duplicate deliveries of the still-valid config are tolerated.
	bad := strings.Replace(next, "openai", "cohere", 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0600))

	deadline := time.After(750 * time.Millisecond)
	for {
		select {
		case c := <-reloads:
			assert.Equal(t, "openai", c.LLM.Provider, "invalid reload must be dropped")
		case <-deadline:
			return
		}
	}
}
