package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	// DefaultModel is used when neither the config nor the call names a model.
	DefaultModel = "claude-3-opus-20240229"
)

// Driver implements [ai.ChatDriver] for Anthropic's Messages API. It is
// registered under the "claude" provider name. Use [New] to construct a
// ready-to-use instance.
type Driver struct {
	cfg       ai.ProviderConfig
	baseURL   string
	client    *http.Client
	formatter Formatter
}

// Option customises a Driver.
type Option func(*Driver)

// WithHTTPClient sets the HTTP client used for outbound requests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Driver) {
		if client != nil {
			d.client = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		if baseURL != "" {
			d.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// New returns a Driver for cfg. Unset model, temperature and max tokens take
// the package defaults. cfg.BaseURL, when set, replaces the public endpoint.
func New(cfg ai.ProviderConfig, opts ...Option) *Driver {
	driver := &Driver{
		cfg:     cfg.WithDefaults(DefaultModel),
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	if cfg.BaseURL != "" {
		driver.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(driver)
	}
	return driver
}

// Provider returns [ai.ProviderClaude].
func (d *Driver) Provider() ai.Provider {
	return ai.ProviderClaude
}

// Config returns a copy of the effective configuration.
func (d *Driver) Config() ai.ProviderConfig {
	return d.cfg
}

// Send posts the conversation to /messages and returns the first content
// block of the reply. System messages are sent with the user role.
func (d *Driver) Send(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.Response, error) {
	if err := ai.RequireAPIKey(ai.ProviderClaude, d.cfg); err != nil {
		return nil, err
	}

	request := d.buildRequest(messages, options)
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderClaude, request.Model, len(messages), false)
	d.enrichSpan(ctx)

	_, resp, err := utils.DoPostSync[messagesResponse](ctx, d.client, d.baseURL+messagesEndpoint, "", request, d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderClaude, "messages", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	if len(resp.Content) == 0 {
		requestErr := ai.NewRequestError(ai.ProviderClaude, "messages", fmt.Errorf("response has no content blocks"))
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	response := resp.toGeneric()
	observation.End(nil, response.Usage)
	ai.OverviewFromContext(ctx).Record(response.Usage)
	return response, nil
}

// Stream posts the conversation with stream=true. The body is read as
// newline-delimited JSON events (an SSE "data:" prefix is tolerated) and
// every content_block_delta yields its text. The model name is taken from
// the message_start event.
func (d *Driver) Stream(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.DeltaStream, error) {
	if err := ai.RequireAPIKey(ai.ProviderClaude, d.cfg); err != nil {
		return nil, err
	}

	request := d.buildRequest(messages, options)
	request.Stream = true
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderClaude, request.Model, len(messages), true)
	d.enrichSpan(ctx)

	httpResponse, err := utils.DoPostStream(ctx, d.client, d.baseURL+messagesEndpoint, "", request, d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderClaude, "messages stream", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	extractor := &deltaExtractor{model: request.Model}
	return ai.StreamPayloads(ctx, ai.ProviderClaude, httpResponse.Body, utils.NewLineScanner(httpResponse.Body), extractor.extract, observation), nil
}

func (d *Driver) buildRequest(messages []ai.Message, options ai.Options) messagesRequest {
	return messagesRequest{
		Model:          options.Model(d.cfg.Model),
		Messages:       d.formatter.formatRequest(messages),
		RequestOptions: FormatOptions(options, d.cfg),
	}
}

// headers carries the Anthropic authentication scheme; no Bearer token is
// sent.
func (d *Driver) headers() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: d.cfg.APIKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

func (d *Driver) enrichSpan(ctx context.Context) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.String(observability.AttrLLMEndpoint, d.baseURL+messagesEndpoint))
	}
}
