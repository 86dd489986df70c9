package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bupple-inc/ai-engine/providers/observability"
)

// maxResponseBodySize caps how much of a response body is read into memory
// (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// HeaderOption is an extra request header. Providers use it for their own
// authentication schemes (x-api-key, x-goog-api-key, OpenAI-Organization).
type HeaderOption struct {
	Key   string
	Value string
}

// StatusError reports a non-2xx response. Body holds at most
// maxResponseBodySize bytes of the response payload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(e.Body, DefaultMaxStringLength))
}

// DoPostSync marshals body as JSON, POSTs it to url and decodes a 2xx response
// into Out.
//
// A non-empty apiKey is sent as a Bearer token; headers are applied after it
// and may override it. Non-2xx responses return a *StatusError. The response
// body is always closed; a close failure is logged and never replaces the
// returned error.
func DoPostSync[Out any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *Out, error) {
	span := observability.SpanFromContext(ctx)

	response, err := doPost(ctx, client, url, apiKey, body, "application/json", headers)
	if err != nil {
		return response, nil, err
	}
	defer CloseWithLog(response.Body)

	respBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, &StatusError{StatusCode: response.StatusCode, Body: string(respBody)}
	}

	var out Out
	if err := json.Unmarshal(respBody, &out); err != nil {
		return response, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			response.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return response, &out, nil
}

// doPost builds and sends the request shared by DoPostSync and DoPostStream.
func doPost(ctx context.Context, client *http.Client, url string, apiKey string, body any, accept string, headers []HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", accept)
	if apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		if header.Value != "" {
			request.Header.Set(header.Key, header.Value)
		}
	}

	start := time.Now()
	response, err := httpClient.Do(request)
	elapsed := time.Since(start)

	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, elapsed),
			)
		}
		return response, fmt.Errorf("error sending request: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrHTTPDuration, elapsed),
		)
	}

	return response, nil
}

// CloseWithLog closes closer and logs a failure at warn level.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
