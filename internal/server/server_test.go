package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bupple-inc/ai-engine/core/config"
	"github.com/bupple-inc/ai-engine/core/engine"
)

const completionFixture = `{
	"model": "gpt-4-0613",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there"}}],
	"usage": {"prompt_tokens": 9, "completion_tokens": 2, "total_tokens": 11}
}`

const streamFixture = "data: {\"model\":\"gpt-4-0613\",\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
	"data: {\"model\":\"gpt-4-0613\",\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n" +
	"data: [DONE]\n\n"

// upstream is an OpenAI stand-in. A non-zero status makes every call fail
// with that status. lastMessages holds the message count of the last request.
type upstream struct {
	status       int
	lastMessages chan int
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.status != 0 {
		http.Error(w, `{"error":{"message":"slow down"}}`, u.status)
		return
	}
	var body struct {
		Stream   bool  `json:"stream"`
		Messages []any `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	select {
	case u.lastMessages <- len(body.Messages):
	default:
	}
	if body.Stream {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamFixture)
		return
	}
	fmt.Fprint(w, completionFixture)
}

func newTestServer(t *testing.T, up *upstream) *Server {
	t.Helper()
	if up.lastMessages == nil {
		up.lastMessages = make(chan int, 1)
	}
	backend := httptest.NewServer(up)
	t.Cleanup(backend.Close)

	cfg := config.Default()
	cfg.Memory.Store = config.StoreMemory
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.BaseURL = backend.URL

	eng, err := engine.New(cfg, engine.WithHTTPClient(backend.Client()))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	srv, err := New(eng, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errBody, _ := decode(t, rec)["error"].(map[string]any)
	typ, _ := errBody["type"].(string)
	return typ
}

func TestNew_NilEngine(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected an error for a nil engine")
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &upstream{})
	rec := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

// TestChat_Success verifies the JSON reply of the blocking chat endpoint.
func TestChat_Success(t *testing.T) {
	srv := newTestServer(t, &upstream{})
	rec := do(t, srv, http.MethodPost, "/v1/chat/openai", `{"messages":[{"role":"user","content":"Hi"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["content"] != "Hello there" || body["role"] != "assistant" || body["model"] != "gpt-4-0613" {
		t.Errorf("unexpected body %v", body)
	}
}

// TestChat_RequestErrors verifies the 400 responses for bad input.
func TestChat_RequestErrors(t *testing.T) {
	srv := newTestServer(t, &upstream{})
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"unknown driver", "/v1/chat/mistral", `{"messages":[{"role":"user","content":"Hi"}]}`},
		{"empty messages", "/v1/chat/openai", `{"messages":[]}`},
		{"missing body", "/v1/chat/openai", ""},
		{"invalid json", "/v1/chat/openai", `{"messages":`},
		{"trailing data", "/v1/chat/openai", `{"messages":[{"role":"user","content":"Hi"}]} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if typ := errorType(t, rec); typ != "invalid_request_error" {
				t.Errorf("error type = %q", typ)
			}
		})
	}
}

// TestChat_UpstreamError verifies that the provider status is passed on.
func TestChat_UpstreamError(t *testing.T) {
	srv := newTestServer(t, &upstream{status: http.StatusTooManyRequests})
	rec := do(t, srv, http.MethodPost, "/v1/chat/openai", `{"messages":[{"role":"user","content":"Hi"}]}`)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if typ := errorType(t, rec); typ != "upstream_error" {
		t.Errorf("error type = %q", typ)
	}
}

// TestChat_WithMemory verifies that a scoped chat sends the stored history
// and records both turns.
func TestChat_WithMemory(t *testing.T) {
	up := &upstream{lastMessages: make(chan int, 1)}
	srv := newTestServer(t, up)

	rec := do(t, srv, http.MethodPost, "/v1/history/openai/Thread/42", `{"role":"system","content":"Be brief."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/v1/chat/openai",
		`{"messages":[{"role":"user","content":"Hi"}],"memory":{"parent_class":"Thread","parent_id":"42"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d %s", rec.Code, rec.Body.String())
	}
	if got := <-up.lastMessages; got != 2 {
		t.Errorf("upstream saw %d messages, want stored system plus user", got)
	}

	rec = do(t, srv, http.MethodGet, "/v1/history/openai/Thread/42", "")
	want := `{"driver":"openai","messages":[{"role":"system","content":"Be brief."},{"role":"user","content":"Hi"},{"role":"assistant","content":"Hello there"}]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("history = %s\nwant %s", got, want)
	}
}

// TestChatStream verifies the SSE frames of the streaming endpoint.
func TestChatStream(t *testing.T) {
	srv := newTestServer(t, &upstream{})
	rec := do(t, srv, http.MethodPost, "/v1/chat/openai/stream", `{"messages":[{"role":"user","content":"Hi"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	want := "data: {\"content\":\"Hello\",\"model\":\"gpt-4-0613\"}\n\n" +
		"data: {\"content\":\" there\",\"model\":\"gpt-4-0613\"}\n\n" +
		"event: done\ndata: {\"type\":\"done\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q\nwant %q", got, want)
	}
}

// TestChatStream_UpstreamRejected verifies that a failure before the first
// byte is still a JSON error.
func TestChatStream_UpstreamRejected(t *testing.T) {
	srv := newTestServer(t, &upstream{status: http.StatusUnauthorized})
	rec := do(t, srv, http.MethodPost, "/v1/chat/openai/stream", `{"messages":[{"role":"user","content":"Hi"}]}`)

	if rec.Code != http.StatusUnauthorized || errorType(t, rec) != "upstream_error" {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

// TestHistory_Lifecycle verifies add, native and generic listing, and clear
// on a gemini scope.
func TestHistory_Lifecycle(t *testing.T) {
	srv := newTestServer(t, &upstream{})
	base := "/v1/history/gemini/Thread/7"

	for _, body := range []string{
		`{"role":"user","content":"hi"}`,
		`{"role":"assistant","content":"hello","message_id":"m-2"}`,
	} {
		if rec := do(t, srv, http.MethodPost, base, body); rec.Code != http.StatusCreated {
			t.Fatalf("add = %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(t, srv, http.MethodGet, base, "")
	messages, _ := decode(t, rec)["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	second := messages[1].(map[string]any)
	if second["role"] != "assistant" {
		t.Errorf("gemini model turn read back as %v, want assistant", second["role"])
	}
	if _, ok := second["content"]; ok {
		t.Errorf("gemini messages carry parts only, got %v", second)
	}

	rec = do(t, srv, http.MethodGet, base+"?format=generic", "")
	generic, _ := decode(t, rec)["messages"].([]any)
	if len(generic) != 2 || generic[1].(map[string]any)["content"] != "hello" {
		t.Errorf("generic = %v", generic)
	}

	if rec := do(t, srv, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, base, "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"driver":"gemini","messages":[]}` {
		t.Errorf("after clear = %s", got)
	}
}

func TestHistory_Errors(t *testing.T) {
	srv := newTestServer(t, &upstream{})

	rec := do(t, srv, http.MethodPost, "/v1/history/openai/Thread/1", `{"role":"tool","content":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad role = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/v1/history/mistral/Thread/1", "")
	if rec.Code != http.StatusBadRequest || !bytes.Contains(rec.Body.Bytes(), []byte("mistral")) {
		t.Errorf("unknown driver = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/v1/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d", rec.Code)
	}
}
