package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bupple-inc/ai-engine/core/cost"
	"github.com/bupple-inc/ai-engine/providers/ai"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestLoad_Defaults verifies that an empty working directory yields Default().
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
}

// TestLoad_File verifies that values from an explicit YAML file override
// defaults and untouched keys keep theirs.
func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "engine.yaml")
	writeFile(t, path, `
default:
  chat: gemini
  memory: anthropic
gemini:
  model: gemini-1.5-pro
  temperature: 0.3
memory:
  store: memory
log:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Default.Chat != "gemini" || cfg.Default.Memory != "claude" {
		t.Errorf("defaults = %+v", cfg.Default)
	}
	if cfg.Gemini.Model != "gemini-1.5-pro" || cfg.Gemini.Temperature != 0.3 {
		t.Errorf("gemini = %+v", cfg.Gemini)
	}
	if cfg.Gemini.MaxTokens != ai.DefaultMaxTokens {
		t.Errorf("gemini max tokens = %d, want default", cfg.Gemini.MaxTokens)
	}
	if cfg.Memory.Store != StoreMemory || cfg.Log.Format != "json" {
		t.Errorf("memory/log = %+v %+v", cfg.Memory, cfg.Log)
	}
	if cfg.OpenAI.Model != "gpt-4" {
		t.Errorf("openai model = %q", cfg.OpenAI.Model)
	}
}

// TestLoad_DiscoversFile verifies the bupple-engine.yaml lookup in the
// working directory.
func TestLoad_DiscoversFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "bupple-engine.yaml"), "server:\n  addr: \":9999\"\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

// TestLoad_EnvOverrides verifies that prefixed variables beat the file.
func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "engine.yaml")
	writeFile(t, path, "openai:\n  model: from-file\n")

	t.Setenv("BUPPLE_ENGINE_OPENAI_API_KEY", "sk-env")
	t.Setenv("BUPPLE_ENGINE_OPENAI_MODEL", "from-env")
	t.Setenv("BUPPLE_ENGINE_OPENAI_MAX_TOKENS", "64")
	t.Setenv("BUPPLE_ENGINE_DEFAULT_CHAT", "Anthropic")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-env" || cfg.OpenAI.Model != "from-env" || cfg.OpenAI.MaxTokens != 64 {
		t.Errorf("openai = %+v", cfg.OpenAI)
	}
	if cfg.Default.Chat != "claude" {
		t.Errorf("default chat = %q, want canonical claude", cfg.Default.Chat)
	}
}

// TestLoad_DotEnv verifies that a .env file feeds the environment without
// replacing variables that are already set.
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, ".env"),
		"BUPPLE_ENGINE_GEMINI_API_KEY=from-dotenv\nBUPPLE_ENGINE_CLAUDE_API_KEY=from-dotenv\n")

	t.Setenv("BUPPLE_ENGINE_CLAUDE_API_KEY", "from-shell")
	t.Cleanup(func() { _ = os.Unsetenv("BUPPLE_ENGINE_GEMINI_API_KEY") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "from-dotenv" {
		t.Errorf("gemini key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Claude.APIKey != "from-shell" {
		t.Errorf("claude key = %q, want shell value kept", cfg.Claude.APIKey)
	}
}

// TestLoad_MissingExplicitFile verifies that a named but absent file fails.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Op != "read" {
		t.Fatalf("expected read ConfigError, got %v", err)
	}
}

// TestLoad_InvalidFile verifies that validation failures surface from Load.
func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "engine.yaml")
	writeFile(t, path, "memory:\n  store: postgres\n")

	_, err := Load(path)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !vErr.HasError("memory.dsn") {
		t.Errorf("errors = %v", vErr.Errors)
	}
}

// TestValidate_Aggregates verifies that every problem is reported at once.
func TestValidate_Aggregates(t *testing.T) {
	cfg := Default()
	cfg.Default.Chat = "mistral"
	cfg.OpenAI.Temperature = 3
	cfg.Claude.MaxTokens = -1
	cfg.Memory.Store = "redis"
	cfg.Log.Level = "verbose"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"default.chat", "openai.temperature", "claude.max_tokens", "memory.store", "log.level", "log.format"} {
		if !vErr.HasError(field) {
			t.Errorf("missing error for %s in %v", field, vErr.Errors)
		}
	}
	if len(vErr.Errors) != 6 {
		t.Errorf("expected 6 errors, got %d: %v", len(vErr.Errors), vErr.Errors)
	}
	if !strings.Contains(err.Error(), "6 errors") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidate_FileStoreNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Memory.FilePath = ""

	err := cfg.Validate()
	var vErr *ValidationError
	if !errors.As(err, &vErr) || !vErr.HasError("memory.file_path") {
		t.Fatalf("expected file_path error, got %v", err)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
}

// TestRedacted verifies masking of secrets and that the receiver is left
// unchanged.
func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.Memory.DSN = "postgres://u:p@h/db"

	red := cfg.Redacted()
	if red.OpenAI.APIKey != "****" || red.Memory.DSN != "****" {
		t.Errorf("redacted = %+v %+v", red.OpenAI, red.Memory)
	}
	if red.Claude.APIKey != "" {
		t.Errorf("empty key should stay empty, got %q", red.Claude.APIKey)
	}
	if cfg.OpenAI.APIKey != "sk-secret" {
		t.Error("Redacted modified the receiver")
	}

	out, err := Marshal(red)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(out), "sk-secret") {
		t.Errorf("marshalled config leaks the key:\n%s", out)
	}
	if !strings.Contains(string(out), "model: gpt-4") {
		t.Errorf("unexpected yaml:\n%s", out)
	}
}

func TestProvider(t *testing.T) {
	cfg := Default()
	pc, ok := cfg.Provider(ai.ProviderClaude)
	if !ok || pc.Model != "claude-3-opus-20240229" {
		t.Errorf("Provider(claude) = %+v, %v", pc, ok)
	}
	if _, ok := cfg.Provider(ai.Provider("mistral")); ok {
		t.Error("expected unknown provider to be rejected")
	}
}

// TestLoad_Pricing verifies that the pricing section decodes into a lookup
// table and that negative rates are rejected.
func TestLoad_Pricing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "engine.yaml")
	writeFile(t, path, `
pricing:
  gpt-4:
    input_cost_per_million: 30
    output_cost_per_million: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mc, ok := cfg.Pricing.Lookup("gpt-4-0613")
	if !ok || mc.InputCostPerMillion != 30 || mc.OutputCostPerMillion != 60 {
		t.Errorf("Lookup = %+v, %v", mc, ok)
	}

	bad := Default()
	bad.Pricing = cost.Table{"gpt-4": {InputCostPerMillion: -1}}
	var vErr *ValidationError
	if err := bad.Validate(); !errors.As(err, &vErr) || !vErr.HasError("pricing.gpt-4") {
		t.Errorf("expected pricing error, got %v", err)
	}
}
