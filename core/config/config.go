package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bupple-inc/ai-engine/core/cost"
	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Config holds every engine setting. It is loaded once and passed by value
// into the components that need it.
type Config struct {
	Default DefaultConfig     `mapstructure:"default" yaml:"default"`
	OpenAI  ai.ProviderConfig `mapstructure:"openai" yaml:"openai"`
	Claude  ai.ProviderConfig `mapstructure:"claude" yaml:"claude"`
	Gemini  ai.ProviderConfig `mapstructure:"gemini" yaml:"gemini"`
	Memory  MemoryConfig      `mapstructure:"memory" yaml:"memory"`
	Log     LogConfig         `mapstructure:"log" yaml:"log"`
	Server  ServerConfig      `mapstructure:"server" yaml:"server"`

	// Pricing maps model names to token rates for usage reports.
	Pricing cost.Table `mapstructure:"pricing" yaml:"pricing,omitempty"`
}

// DefaultConfig names the drivers used when a caller passes an empty name.
type DefaultConfig struct {
	Chat   string `mapstructure:"chat" yaml:"chat"`
	Memory string `mapstructure:"memory" yaml:"memory"`
}

// MemoryConfig selects and configures the history store.
type MemoryConfig struct {
	// Store is one of memory, file or postgres.
	Store     string `mapstructure:"store" yaml:"store"`
	TableName string `mapstructure:"table_name" yaml:"table_name"`
	DSN       string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	FilePath  string `mapstructure:"file_path" yaml:"file_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Memory store names.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Default returns the built-in settings without touching the environment
// or the filesystem.
func Default() Config {
	return Config{
		Default: DefaultConfig{
			Chat:   ai.ProviderOpenAI.String(),
			Memory: ai.ProviderOpenAI.String(),
		},
		OpenAI: ai.ProviderConfig{Model: "gpt-4", Temperature: ai.DefaultTemperature, MaxTokens: ai.DefaultMaxTokens},
		Claude: ai.ProviderConfig{Model: "claude-3-opus-20240229", Temperature: ai.DefaultTemperature, MaxTokens: ai.DefaultMaxTokens},
		Gemini: ai.ProviderConfig{Model: "gemini-pro", Temperature: ai.DefaultTemperature, MaxTokens: ai.DefaultMaxTokens},
		Memory: MemoryConfig{
			Store:     StoreFile,
			TableName: "engine_memory",
			FilePath:  "storage/bupple-engine/memory.json",
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Provider returns the settings of p.
func (c Config) Provider(p ai.Provider) (ai.ProviderConfig, bool) {
	switch p {
	case ai.ProviderOpenAI:
		return c.OpenAI, true
	case ai.ProviderClaude:
		return c.Claude, true
	case ai.ProviderGemini:
		return c.Gemini, true
	}
	return ai.ProviderConfig{}, false
}

// Redacted returns a copy with API keys and the DSN masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	c.Claude.APIKey = mask(c.Claude.APIKey)
	c.Gemini.APIKey = mask(c.Gemini.APIKey)
	c.Memory.DSN = mask(c.Memory.DSN)
	return c
}

// Marshal renders c as YAML.
func Marshal(c Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, &ConfigError{Op: "marshal", Err: fmt.Errorf("failed to render yaml: %w", err)}
	}
	return out, nil
}
