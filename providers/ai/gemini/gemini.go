package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1"

	// DefaultModel is used when neither the config nor the call names a model.
	DefaultModel = "gemini-pro"
)

// Driver implements ai.ChatDriver for the Gemini generateContent API.
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

// WithBaseURL overrides the API root. The project segment is not appended to
// an overridden URL.
func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		if baseURL != "" {
			d.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// New creates a Gemini driver. When cfg.ProjectID is set requests are scoped
// to /v1/projects/{project_id}.
func New(cfg ai.ProviderConfig, opts ...Option) *Driver {
	driver := &Driver{
		cfg:     cfg.WithDefaults(DefaultModel),
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	if cfg.ProjectID != "" {
		driver.baseURL = defaultBaseURL + "/projects/" + url.PathEscape(cfg.ProjectID)
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
	return ai.ProviderGemini
}

func (d *Driver) Config() ai.ProviderConfig {
	return d.cfg
}

// Send implements ai.ChatDriver.
func (d *Driver) Send(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.Response, error) {
	if err := ai.RequireAPIKey(ai.ProviderGemini, d.cfg); err != nil {
		return nil, err
	}

	model := options.Model(d.cfg.Model)
	endpoint := d.endpoint(model, "generateContent")
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderGemini, model, len(messages), false)
	enrichSpan(ctx, endpoint)

	_, resp, err := utils.DoPostSync[generateResponse](ctx, d.client, endpoint, "", d.buildRequest(messages, options), d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderGemini, "generate content", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	text, ok := resp.firstText()
	if !ok {
		requestErr := ai.NewRequestError(ai.ProviderGemini, "generate content", fmt.Errorf("response has no candidate text"))
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	response := &ai.Response{
		Role:    ai.RoleAssistant,
		Content: text,
		Model:   resp.modelOr(model),
		Usage:   resp.usage(),
	}
	observation.End(nil, response.Usage)
	ai.OverviewFromContext(ctx).Record(response.Usage)
	return response, nil
}

// Stream implements ai.ChatDriver using streamGenerateContent with alt=sse.
// Every event is a partial generateContent response.
func (d *Driver) Stream(ctx context.Context, messages []ai.Message, options ai.Options) (*ai.DeltaStream, error) {
	if err := ai.RequireAPIKey(ai.ProviderGemini, d.cfg); err != nil {
		return nil, err
	}

	model := options.Model(d.cfg.Model)
	endpoint := d.endpoint(model, "streamGenerateContent") + "?alt=sse"
	ctx, observation := ai.ObserveRequest(ctx, ai.ProviderGemini, model, len(messages), true)
	enrichSpan(ctx, endpoint)

	httpResponse, err := utils.DoPostStream(ctx, d.client, endpoint, "", d.buildRequest(messages, options), d.headers()...)
	if err != nil {
		requestErr := ai.NewRequestError(ai.ProviderGemini, "generate content stream", err)
		observation.End(requestErr, nil)
		return nil, requestErr
	}

	extract := func(payload string) (ai.ContentDelta, error) {
		return extractDelta(payload, model)
	}
	return ai.StreamPayloads(ctx, ai.ProviderGemini, httpResponse.Body, utils.NewLineScanner(httpResponse.Body), extract, observation), nil
}

func (d *Driver) endpoint(model, method string) string {
	return d.baseURL + "/models/" + url.PathEscape(model) + ":" + method
}

func (d *Driver) buildRequest(messages []ai.Message, options ai.Options) generateRequest {
	config := FormatOptions(options, d.cfg)
	return generateRequest{
		Contents:         d.formatter.formatRequest(messages),
		GenerationConfig: &config,
	}
}

func (d *Driver) headers() []utils.HeaderOption {
	return []utils.HeaderOption{{Key: "x-goog-api-key", Value: d.cfg.APIKey}}
}

func enrichSpan(ctx context.Context, endpoint string) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.String(observability.AttrLLMEndpoint, endpoint))
	}
}
