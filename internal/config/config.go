package config

import (
	"encoding/json"
	"fmt"
)

// Config is the full datapilot configuration.
type Config struct {
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Supabase SupabaseConfig `json:"supabase" mapstructure:"supabase"`
	Schema   SchemaConfig   `json:"schema" mapstructure:"schema"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	DataDir  string         `json:"data_dir" mapstructure:"data_dir"`
}

// LLMConfig selects the model boundary.
type LLMConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
}

// SupabaseConfig points at the snapshot table.
type SupabaseConfig struct {
	URL             string `json:"url" mapstructure:"url"`
	APIKey          string `json:"api_key" mapstructure:"api_key"`
	Table           string `json:"table" mapstructure:"table"`
	PageSize        int    `json:"page_size" mapstructure:"page_size"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// SchemaConfig carries the prompt-grounding hints for code generation.
type SchemaConfig struct {
	DateColumn string              `json:"date_column" mapstructure:"date_column"`
	ValueHints map[string][]string `json:"value_hints" mapstructure:"value_hints"`
	AliasHints map[string]string   `json:"alias_hints" mapstructure:"alias_hints"`
}

// HistoryConfig controls run-trace persistence.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
		},
		Supabase: SupabaseConfig{
			Table:           "players",
			PageSize:        1000,
			CacheTTLMinutes: 10,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// String returns a JSON representation with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "***"
	}
	if masked.Supabase.APIKey != "" {
		masked.Supabase.APIKey = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid llm provider %q (must be: openai, anthropic)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api_key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase url is required")
	}
	if c.Supabase.APIKey == "" {
		return fmt.Errorf("supabase api_key is required")
	}
	if c.Supabase.Table == "" {
		return fmt.Errorf("supabase table is required")
	}
	if c.Supabase.PageSize < 0 {
		return fmt.Errorf("supabase page_size cannot be negative")
	}

	if c.History.Enabled && c.History.Path == "" && c.DataDir == "" {
		return fmt.Errorf("history is enabled but neither history.path nor data_dir is set")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics is enabled but metrics.addr is empty")
	}
	return nil
}
