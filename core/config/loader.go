package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

const (
	defaultConfigName = "bupple-engine"
	defaultConfigType = "yaml"
	envPrefix         = "BUPPLE_ENGINE"
	envFile           = ".env"
)

// Load reads the configuration. Priority, highest first:
//  1. BUPPLE_ENGINE_* environment variables (a .env file in the working
//     directory is loaded first and never overrides variables already set)
//  2. the YAML file at path, or bupple-engine.yaml in the working directory
//     or ./config when path is empty
//  3. Default()
//
// A missing file is only an error when path is given explicitly.
func Load(path string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType(defaultConfigType)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, &ConfigError{Op: "read", Err: fmt.Errorf("failed to read config file: %w", err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &ConfigError{Op: "unmarshal", Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(name string) error {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &ConfigError{Op: "read", Err: fmt.Errorf("failed to stat %s: %w", name, err)}
	}
	if err := godotenv.Load(name); err != nil {
		return &ConfigError{Op: "read", Err: fmt.Errorf("failed to load %s: %w", name, err)}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("default.chat", d.Default.Chat)
	v.SetDefault("default.memory", d.Default.Memory)

	for name, p := range map[string]ai.ProviderConfig{"openai": d.OpenAI, "claude": d.Claude, "gemini": d.Gemini} {
		v.SetDefault(name+".api_key", p.APIKey)
		v.SetDefault(name+".model", p.Model)
		v.SetDefault(name+".temperature", p.Temperature)
		v.SetDefault(name+".max_tokens", p.MaxTokens)
		v.SetDefault(name+".organization_id", p.OrganizationID)
		v.SetDefault(name+".project_id", p.ProjectID)
		v.SetDefault(name+".base_url", p.BaseURL)
	}

	v.SetDefault("memory.store", d.Memory.Store)
	v.SetDefault("memory.table_name", d.Memory.TableName)
	v.SetDefault("memory.dsn", d.Memory.DSN)
	v.SetDefault("memory.file_path", d.Memory.FilePath)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("server.addr", d.Server.Addr)
}

// Validate checks every setting and canonicalises driver names in place
// ("anthropic" becomes "claude").
func (c *Config) Validate() error {
	var errs []string

	for field, name := range map[string]*string{"default.chat": &c.Default.Chat, "default.memory": &c.Default.Memory} {
		if *name == "" {
			continue
		}
		provider, ok := ai.ParseProvider(*name)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: unsupported driver %q", field, *name))
			continue
		}
		*name = provider.String()
	}

	for _, p := range ai.Providers() {
		pc, _ := c.Provider(p)
		if pc.Temperature < 0 || pc.Temperature > 2 {
			errs = append(errs, fmt.Sprintf("%s.temperature: must be between 0 and 2, got %v", p, pc.Temperature))
		}
		if pc.MaxTokens < 0 {
			errs = append(errs, fmt.Sprintf("%s.max_tokens: must not be negative, got %d", p, pc.MaxTokens))
		}
	}

	switch c.Memory.Store {
	case StoreMemory:
	case StoreFile:
		if c.Memory.FilePath == "" {
			errs = append(errs, "memory.file_path: required for the file store")
		}
	case StorePostgres:
		if c.Memory.DSN == "" {
			errs = append(errs, "memory.dsn: required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("memory.store: must be one of memory, file, postgres, got %q", c.Memory.Store))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: must be text or json, got %q", c.Log.Format))
	}

	for model, mc := range c.Pricing {
		if err := mc.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("pricing.%s: %v", model, err))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
