package ai

import (
	"context"
	"fmt"
	"strings"
)

// Provider names one of the supported backends. The set is closed; lookups
// for any other name fail with an *UnsupportedDriverError.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
)

// Providers lists every supported backend in a stable order.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderClaude, ProviderGemini}
}

// ParseProvider resolves a driver name. Matching is case-insensitive and
// "anthropic" is accepted for claude.
func ParseProvider(name string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return ProviderOpenAI, true
	case "claude", "anthropic":
		return ProviderClaude, true
	case "gemini":
		return ProviderGemini, true
	}
	return "", false
}

func (p Provider) String() string {
	return string(p)
}

// ChatDriver sends conversations to one backend.
//
// Implementations are safe for concurrent use. Neither Send nor Stream retries.
type ChatDriver interface {
	Provider() Provider

	// Send performs one blocking request and returns the complete reply.
	Send(ctx context.Context, messages []Message, options Options) (*Response, error)

	// Stream starts a request and returns a lazy stream of deltas. Errors that
	// happen before the first byte (missing key, transport, non-2xx) are
	// returned directly; later failures surface through the iterator.
	Stream(ctx context.Context, messages []Message, options Options) (*DeltaStream, error)

	// Config returns a copy of the effective configuration.
	Config() ProviderConfig
}

// Formatter converts between the generic message model and a provider's wire
// and storage shapes.
type Formatter interface {
	Provider() Provider

	// StorageRole normalises a role before it is persisted.
	StorageRole(role MessageRole) MessageRole

	// FormatMessages renders the outgoing request message list.
	FormatMessages(messages []Message) any

	// EncodeStored renders a persisted message in the provider's native shape.
	EncodeStored(message Message) any

	// ParseMessage maps one native message back to the generic model.
	ParseMessage(native any) (Message, error)
}

// RequireAPIKey fails with a *ProviderRequestError when cfg has no key.
func RequireAPIKey(provider Provider, cfg ProviderConfig) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &ProviderRequestError{
			Provider: provider,
			Reason:   "missing api key",
			Err:      fmt.Errorf("%s api key is not configured", provider),
		}
	}
	return nil
}
