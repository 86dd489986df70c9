package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type echoPayload struct {
	Message string `json:"message"`
}

// TestDoPostSync_DecodesResponse verifies that a 2xx JSON body is decoded into
// the requested type and that auth and extra headers reach the server.
func TestDoPostSync_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "k1" {
			t.Errorf("expected x-api-key header, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		var in echoPayload
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"message":"echo %s"}`, in.Message)
	}))
	defer server.Close()

	_, out, err := DoPostSync[echoPayload](context.Background(), server.Client(), server.URL, "secret",
		echoPayload{Message: "hi"}, HeaderOption{Key: "x-api-key", Value: "k1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Message != "echo hi" {
		t.Errorf("expected %q, got %q", "echo hi", out.Message)
	}
}

// TestDoPostSync_EmptyHeaderSkipped verifies that headers with empty values
// and an empty api key are not sent.
func TestDoPostSync_EmptyHeaderSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("expected no Authorization header")
		}
		if _, ok := r.Header["Openai-Organization"]; ok {
			t.Error("expected no organization header")
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoPayload](context.Background(), server.Client(), server.URL, "",
		echoPayload{}, HeaderOption{Key: "OpenAI-Organization", Value: ""})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

// TestDoPostSync_NonTwoxx verifies that a non-2xx response yields a
// *StatusError carrying the status code and body.
func TestDoPostSync_NonTwoxx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoPayload](context.Background(), server.Client(), server.URL, "k", echoPayload{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", statusErr.StatusCode)
	}
	if statusErr.Body != `{"error":"bad key"}` {
		t.Errorf("unexpected body %q", statusErr.Body)
	}
}

// TestDoPostSync_InvalidJSON verifies that an undecodable 2xx body is an error.
func TestDoPostSync_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	_, out, err := DoPostSync[echoPayload](context.Background(), server.Client(), server.URL, "k", echoPayload{})
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
	if out != nil {
		t.Errorf("expected nil output, got %+v", out)
	}
}

// TestDoPostSync_CanceledContext verifies that a canceled context fails the
// request before a response is read.
func TestDoPostSync_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DoPostSync[echoPayload](ctx, server.Client(), server.URL, "k", echoPayload{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
