package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Loader handles configuration loading.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty path falls back to
// ~/.datapilot/datapilot.json.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the configuration. A missing file yields defaults plus
// environment overrides rather than an error.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("DATAPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".datapilot")
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.DataDir, "history.db")
	}

	l.v = v
	return cfg, nil
}

// Watch reloads the config when the file changes and hands the new
// config to onChange. A reload that fails validation is dropped; the
// previous config stays in effect.
func (l *Loader) Watch(onChange func(*Config)) error {
	if l.v == nil {
		return fmt.Errorf("Load must succeed before Watch")
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg := DefaultConfig()
		if err := l.v.Unmarshal(cfg); err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("Config reload failed, keeping previous config")
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("Reloaded config is invalid, keeping previous config")
			return
		}
		log.Info().Str("file", e.Name).Msg("Config reloaded")
		onChange(cfg)
	})
	l.v.WatchConfig()
	return nil
}

// GetConfigPath returns the resolved config file path.
func (l *Loader) GetConfigPath() string {
	p, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return p
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".datapilot", "datapilot.json"), nil
}

// Load is a convenience function that creates a loader and loads the config.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
