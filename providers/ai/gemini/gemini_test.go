package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

const generateFixture = `{
	"candidates": [{"content": {"role": "model", "parts": [{"text": "Hi from Gemini"}]}, "finishReason": "STOP"}],
	"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 4, "totalTokenCount": 8}
}`

const streamFixture = "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hi from\"}]}}]}\n\n" +
	"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\" Gemini\"}]}}]}\n\n" +
	"data: {\"usageMetadata\":{\"totalTokenCount\":8}}\n\n" +
	"data: {broken\n\n"

func newTestDriver(t *testing.T, cfg ai.ProviderConfig, handler http.HandlerFunc) *Driver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(cfg, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

// TestSend_Success verifies the endpoint, auth header, role mapping and
// generation config.
func TestSend_Success(t *testing.T) {
	driver := newTestDriver(t, ai.ProviderConfig{APIKey: "g-key"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-pro:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("unexpected api key header %q", r.Header.Get("x-goog-api-key"))
		}

		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		roles := []string{}
		for _, c := range body.Contents {
			roles = append(roles, c.Role)
		}
		if fmt.Sprint(roles) != "[model user model]" {
			t.Errorf("unexpected roles %v", roles)
		}
		if body.GenerationConfig == nil || *body.GenerationConfig.MaxOutputTokens != 1000 || *body.GenerationConfig.TopK != 3 {
			t.Errorf("unexpected generation config %+v", body.GenerationConfig)
		}
		fmt.Fprint(w, generateFixture)
	})

	response, err := driver.Send(context.Background(), []ai.Message{
		{Role: ai.RoleSystem, Content: "rules"},
		{Role: ai.RoleUser, Content: "hello"},
		{Role: ai.RoleAssistant, Content: "hi"},
	}, ai.Options{"top_k": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Hi from Gemini" || response.Model != "gemini-pro" || response.Role != ai.RoleAssistant {
		t.Errorf("unexpected response %+v", response)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 8 {
		t.Errorf("unexpected usage %+v", response.Usage)
	}
}

// TestSend_Non2xx verifies failures surface as ProviderRequestError.
func TestSend_Non2xx(t *testing.T) {
	driver := newTestDriver(t, ai.ProviderConfig{APIKey: "g-key"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := driver.Send(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "x"}}, nil)
	var requestErr *ai.ProviderRequestError
	if !errors.As(err, &requestErr) || requestErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 request error, got %v", err)
	}
}

// TestStream_ConcatenationMatchesSend verifies the SSE stream joins into the
// Send text and uses the alt=sse endpoint.
func TestStream_ConcatenationMatchesSend(t *testing.T) {
	driver := newTestDriver(t, ai.ProviderConfig{APIKey: "g-key"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/gemini-pro:streamGenerateContent" {
			if r.URL.Query().Get("alt") != "sse" {
				t.Errorf("expected alt=sse, got %q", r.URL.RawQuery)
			}
			fmt.Fprint(w, streamFixture)
			return
		}
		fmt.Fprint(w, generateFixture)
	})
	messages := []ai.Message{{Role: ai.RoleUser, Content: "hello"}}

	sent, err := driver.Send(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	stream, err := driver.Stream(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	collected, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if collected.Content != sent.Content {
		t.Errorf("expected %q, got %q", sent.Content, collected.Content)
	}
	if collected.Model != "gemini-pro" {
		t.Errorf("expected request model, got %q", collected.Model)
	}
	if stream.Skipped() != 1 {
		t.Errorf("expected 1 skipped payload, got %d", stream.Skipped())
	}
}

// TestNew_ProjectBaseURL verifies project scoping of the base URL.
func TestNew_ProjectBaseURL(t *testing.T) {
	driver := New(ai.ProviderConfig{APIKey: "k", ProjectID: "my-project"})
	want := "https://generativelanguage.googleapis.com/v1/projects/my-project/models/gemini-pro:generateContent"
	if got := driver.endpoint("gemini-pro", "generateContent"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	plain := New(ai.ProviderConfig{APIKey: "k"})
	if got := plain.endpoint("gemini-pro", "generateContent"); got != "https://generativelanguage.googleapis.com/v1/models/gemini-pro:generateContent" {
		t.Errorf("unexpected endpoint %q", got)
	}
}
