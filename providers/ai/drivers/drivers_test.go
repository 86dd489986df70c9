package drivers

import (
	"errors"
	"testing"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// TestNewChatDriver_Supported verifies every provider builds a driver that
// reports its own kind and formatter.
func TestNewChatDriver_Supported(t *testing.T) {
	for _, provider := range Supported() {
		driver, err := NewChatDriver(provider, ai.ProviderConfig{APIKey: "k"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provider, err)
		}
		if driver.Provider() != provider {
			t.Errorf("expected %s, got %s", provider, driver.Provider())
		}
		formatter, ok := Formatter(provider)
		if !ok || formatter.Provider() != provider {
			t.Errorf("%s: formatter mismatch", provider)
		}
	}
}

// TestNewChatDriver_Unsupported verifies unknown providers are rejected.
func TestNewChatDriver_Unsupported(t *testing.T) {
	_, err := NewChatDriver(ai.Provider("mistral"), ai.ProviderConfig{})
	var unsupported *ai.UnsupportedDriverError
	if !errors.As(err, &unsupported) || unsupported.Name != "mistral" || unsupported.Kind != "chat" {
		t.Fatalf("expected unsupported chat driver error, got %v", err)
	}
}

// TestFormatterFor verifies name resolution including the anthropic alias.
func TestFormatterFor(t *testing.T) {
	formatter, err := FormatterFor("memory", "anthropic")
	if err != nil || formatter.Provider() != ai.ProviderClaude {
		t.Fatalf("expected claude formatter, got %v, %v", formatter, err)
	}

	_, err = FormatterFor("memory", "mistral")
	var unsupported *ai.UnsupportedDriverError
	if !errors.As(err, &unsupported) || unsupported.Kind != "memory" {
		t.Errorf("expected unsupported memory driver error, got %v", err)
	}
}

// TestNewChatDriver_Options verifies construction options reach the driver.
func TestNewChatDriver_Options(t *testing.T) {
	driver, err := NewChatDriver(ai.ProviderGemini, ai.ProviderConfig{APIKey: "k", Model: "gemini-1.5-pro"}, WithBaseURL("http://localhost:1234"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver.Config().Model != "gemini-1.5-pro" {
		t.Errorf("unexpected model %q", driver.Config().Model)
	}
}
