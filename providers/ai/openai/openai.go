package openai

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
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"

	// DefaultModel is used when neither the config nor the call names a model.
	DefaultModel = "gpt-4"
)

// Driver implements ai.ChatDriver for the OpenAI chat completions API.
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

// WithBaseURL overrides the API base URL, e.g. for a proxy or a test server.
func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		if baseURL != "" {
			d.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// New creates a driver. Missing model, temperature and max tokens take the
// package defaults; the API key is only checked when a request is made.
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

func (d *Driver) Provider() ai.Provider {
	return ai.ProviderOpenAI
}

func (d *Driver) Config() ai.ProviderConfig {
	return d.cfg
}

// Send implements ai.ChatDriver.
func (d *Driver) Send(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.Response, error) {
	if err := ai.RequireAPIKey(ai.ProviderOpenAI, d.cfg); err != nil {
		return nil, err
	}

	request := d.buildRequest(messages, options)
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderOpenAI, request.Model, len(messages), false)
	d.enrichSpan(ctx)

	_, resp, err := utils.DoPostSync[chatResponse](ctx, d.client, d.baseURL+chatCompletionsEndpoint, d.cfg.APIKey, request, d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderOpenAI, "chat completion", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	if len(resp.Choices) == 0 {
		requestErr := ai.NewRequestError(ai.ProviderOpenAI, "chat completion", fmt.Errorf("response has no choices"))
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	response := resp.toGeneric()
	observation.End(nil, response.Usage)
	ai.OverviewFromContext(ctx).Record(response.Usage)
	return response, nil
}

// Stream implements ai.ChatDriver. The endpoint answers with SSE events
// terminated by a [DONE] sentinel.
func (d *Driver) Stream(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.DeltaStream, error) {
	if err := ai.RequireAPIKey(ai.ProviderOpenAI, d.cfg); err != nil {
		return nil, err
	}

	request := d.buildRequest(messages, options)
	request.Stream = true
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderOpenAI, request.Model, len(messages), true)
	d.enrichSpan(ctx)

	httpResponse, err := utils.DoPostStream(ctx, d.client, d.baseURL+chatCompletionsEndpoint, d.cfg.APIKey, request, d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderOpenAI, "chat completion stream", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	return ai.StreamPayloads(ctx, ai.ProviderOpenAI, httpResponse.Body, utils.NewSSEScanner(httpResponse.Body), extractDelta, observation), nil
}

func (d *Driver) buildRequest(messages []ai.Message, options ai.Options) chatRequest {
	return chatRequest{
		Model:          options.Model(d.cfg.Model),
		Messages:       d.formatter.formatRequest(messages),
		RequestOptions: FormatOptions(options, d.cfg),
	}
}

func (d *Driver) headers() []utils.HeaderOption {
	return []utils.HeaderOption{{Key: "OpenAI-Organization", Value: d.cfg.OrganizationID}}
}

func (d *Driver) enrichSpan(ctx context.Context) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.String(observability.AttrLLMEndpoint, d.baseURL+chatCompletionsEndpoint))
	}
}
